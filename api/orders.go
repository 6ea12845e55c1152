package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"

	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

const maxOrderIDLength = 64

type orderRequest struct {
	ID         string   `json:"id"`
	ProductIDs []string `json:"product_ids"`
}

func (a *API) withOrderID(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	orderID := chi.URLParam(r, "order_id")
	logEntrySetField(r, "order_id", orderID)
	return gcontext.WithOrderID(r.Context(), orderID), nil
}

// OrderCreate stages a checkout. The caller supplies the order id,
// which doubles as the idempotency key: staging the same id twice is a
// conflict, no matter who sends it.
func (a *API) OrderCreate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)

	params := &orderRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read order parameters: %v", err)
	}

	params.ID = strings.TrimSpace(params.ID)
	if params.ID == "" {
		return badRequestError("Order id is required")
	}
	if len(params.ID) > maxOrderIDLength {
		return badRequestError("Order id must be at most %d characters", maxOrderIDLength)
	}
	if len(params.ProductIDs) == 0 {
		return badRequestError("Order must contain at least one product")
	}

	log := logEntrySetField(r, "order_id", params.ID)

	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	order := models.NewOrder(params.ID, user.ID, user.Email, config.Orders.PendingTTL)

	seen := map[string]bool{}
	items := []*models.LineItem{}
	for _, productID := range params.ProductIDs {
		if seen[productID] {
			return badRequestError("Duplicate product in order: %s", productID)
		}
		seen[productID] = true

		product, err := models.GetActiveProduct(a.db, productID)
		if err != nil {
			if models.IsNotFoundError(err) {
				return unprocessableEntityError("Product not available: %s", productID)
			}
			return internalServerError("Error during database query").WithInternalError(err)
		}
		if product.Price == 0 {
			return unprocessableEntityError("Product is free and cannot be ordered: %s", productID)
		}

		owned, err := models.HasPaidPurchase(a.db, user.ID, productID)
		if err != nil {
			return internalServerError("Error during database query").WithInternalError(err)
		}
		if owned {
			return unprocessableEntityError("Product already purchased: %s", productID)
		}

		items = append(items, models.SnapshotOf(product))
	}
	order.SetLineItems(items)

	tx := a.db.Begin()
	if err := models.CreateOrder(tx, order); err != nil {
		tx.Rollback()
		if models.IsDuplicateOrderError(err) {
			return conflictError("An order with this id already exists")
		}
		return internalServerError("Error creating order").WithInternalError(err)
	}
	if rsp := tx.Commit(); rsp.Error != nil {
		return internalServerError("Error creating order").WithInternalError(rsp.Error)
	}

	log.WithFields(logrus.Fields{
		"item_count": len(items),
		"total":      order.Total,
	}).Info("order staged")
	return sendJSON(w, http.StatusCreated, order)
}

// OrderList returns the caller's orders, or every order for admins.
func (a *API) OrderList(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := getLogEntry(r)

	query := a.db.Model(&models.Order{}).Preload("LineItems")
	if !gcontext.IsAdmin(ctx) {
		query = query.Where("user_id = ?", gcontext.GetUserID(ctx))
	}

	query, err := parseOrderParams(query, r.URL.Query())
	if err != nil {
		return badRequestError("Bad parameters in query: %v", err)
	}

	offset, limit, err := paginate(w, r, query)
	if err != nil {
		return badRequestError("Bad Pagination Parameters: %v", err)
	}

	var orders []models.Order
	if result := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&orders); result.Error != nil {
		return internalServerError("Error during database query").WithInternalError(result.Error)
	}

	log.WithField("order_count", len(orders)).Debugf("Successfully retrieved %d orders", len(orders))
	return sendJSON(w, http.StatusOK, orders)
}

// OrderView returns a single order. A pending order whose checkout
// window has closed is transitioned to expired on read.
func (a *API) OrderView(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	order, err := a.getOrder(gcontext.GetOrderID(ctx))
	if err != nil {
		return err
	}

	if !hasOrderAccess(ctx, order) {
		return notFoundError("Order not found")
	}

	if err := a.expireIfStale(order); err != nil {
		return err
	}

	return sendJSON(w, http.StatusOK, order)
}

func (a *API) getOrder(orderID string) (*models.Order, error) {
	order := &models.Order{}
	rsp := a.db.Preload("LineItems").First(order, "id = ?", orderID)
	if rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, notFoundError("Order not found")
		}
		return nil, internalServerError("Error during database query").WithInternalError(rsp.Error)
	}
	return order, nil
}

func (a *API) expireIfStale(order *models.Order) error {
	if order.State != models.PendingState || !order.Expired(timeNow()) {
		return nil
	}

	rsp := a.db.Model(order).
		Where("state = ?", models.PendingState).
		Update("state", models.ExpiredState)
	if rsp.Error != nil {
		return internalServerError("Error updating order").WithInternalError(rsp.Error)
	}
	order.State = models.ExpiredState
	return nil
}

func (a *API) requireUser(ctx context.Context) (*models.User, error) {
	if user := gcontext.GetUser(ctx); user != nil {
		return user, nil
	}

	user, err := models.GetUser(a.db, gcontext.GetUserID(ctx))
	if err != nil {
		return nil, internalServerError("Error during database query").WithInternalError(err)
	}
	if user == nil {
		return nil, unauthorizedError("User account no longer exists")
	}
	return user, nil
}
