package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"

	"github.com/studymall/studymall/conf"
	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
	"github.com/studymall/studymall/payments"
	"github.com/studymall/studymall/payments/paypal"
	"github.com/studymall/studymall/payments/stripe"
)

type paymentRequest struct {
	Provider   string `json:"provider"`
	PaymentRef string `json:"payment_ref"`
	Amount     uint64 `json:"amount"`
}

func createPaymentProviders(c *conf.Configuration) (map[string]payments.Provider, error) {
	provs := map[string]payments.Provider{}
	if c.Payment.Stripe.Enabled {
		p, err := stripe.NewPaymentProvider(stripe.Config{
			SecretKey: c.Payment.Stripe.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		provs[p.Name()] = p
	}
	if c.Payment.PayPal.Enabled {
		p, err := paypal.NewPaymentProvider(paypal.Config{
			ClientID: c.Payment.PayPal.ClientID,
			Secret:   c.Payment.PayPal.Secret,
			Env:      c.Payment.PayPal.Env,
		})
		if err != nil {
			return nil, err
		}
		provs[p.Name()] = p
	}
	return provs, nil
}

// PaymentCreate confirms the payment for a staged order with the
// gateway and turns its line items into entitlements. Confirming an
// already confirmed order returns the existing entitlements unchanged.
func (a *API) PaymentCreate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)
	log := getLogEntry(r)

	order, err := a.getOrder(gcontext.GetOrderID(ctx))
	if err != nil {
		return err
	}

	if !hasOrderAccess(ctx, order) {
		return notFoundError("Order not found")
	}

	if order.State == models.ConfirmedState {
		return a.sendOrderPurchases(w, http.StatusOK, order.ID)
	}

	if err := a.expireIfStale(order); err != nil {
		return err
	}
	if order.State == models.ExpiredState {
		return unprocessableEntityError("Order has expired and can no longer be paid")
	}

	params := &paymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read payment parameters: %v", err)
	}
	if params.PaymentRef == "" {
		return badRequestError("Payment reference is required")
	}
	if params.Amount != order.Total {
		return badRequestError("Payment amount %d does not match order total %d", params.Amount, order.Total)
	}

	provider := gcontext.GetPaymentProviders(ctx)[params.Provider]
	if provider == nil {
		return badRequestError("Payment provider '%s' is not enabled", params.Provider)
	}

	// re-check availability before money moves, staging was earlier
	for _, item := range order.LineItems {
		if _, err := models.GetActiveProduct(a.db, item.ProductID); err != nil {
			if models.IsNotFoundError(err) {
				return unprocessableEntityError("Product no longer available: %s", item.ProductID)
			}
			return internalServerError("Error during database query").WithInternalError(err)
		}
	}

	confirm, err := provider.NewConfirmer(ctx, r, log)
	if err != nil {
		return badRequestError("Error preparing payment confirmation: %v", err)
	}

	confirmation, err := confirm(params.PaymentRef, order.ID, order.Total)
	if err != nil {
		if payments.IsRejection(err) {
			log.WithError(err).Info("payment rejected by gateway")
			return httpError(http.StatusPaymentRequired, "Payment was not accepted: %v", err)
		}
		return internalServerError("Error confirming payment").WithInternalError(err)
	}

	tx := a.db.Begin()

	rsp := tx.Model(&models.Order{}).
		Where("id = ? AND state = ?", order.ID, models.PendingState).
		Updates(map[string]interface{}{
			"state":            models.ConfirmedState,
			"payment_provider": provider.Name(),
		})
	if rsp.Error != nil {
		tx.Rollback()
		return internalServerError("Error confirming order").WithInternalError(rsp.Error)
	}
	if rsp.RowsAffected == 0 {
		// lost the race against a concurrent confirmation
		tx.Rollback()
		return a.sendOrderPurchases(w, http.StatusOK, order.ID)
	}

	purchases := []*models.Purchase{}
	for _, item := range order.LineItems {
		purchase := models.NewPurchase(order, item, config.Downloads.MaxDownloads, provider.Name(), confirmation.ProcessorID, confirmation.Raw)
		if rsp := tx.Create(purchase); rsp.Error != nil {
			tx.Rollback()
			return internalServerError("Error creating purchase").WithInternalError(rsp.Error)
		}
		purchases = append(purchases, purchase)
	}

	if rsp := tx.Commit(); rsp.Error != nil {
		return internalServerError("Error confirming order").WithInternalError(rsp.Error)
	}

	log.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"processor_id":   confirmation.ProcessorID,
		"purchase_count": len(purchases),
	}).Info("order confirmed")

	if mailer := gcontext.GetMailer(ctx); mailer != nil {
		if err := mailer.PurchaseConfirmationMail(order.Email, purchases); err != nil {
			log.WithError(err).Error("failed to send purchase confirmation mail")
		}
	}

	return sendJSON(w, http.StatusCreated, purchases)
}

func (a *API) sendOrderPurchases(w http.ResponseWriter, status int, orderID string) error {
	var purchases []models.Purchase
	rsp := a.db.Where("order_id = ?", orderID).Find(&purchases)
	if rsp.Error != nil {
		return internalServerError("Error during database query").WithInternalError(rsp.Error)
	}
	return sendJSON(w, status, purchases)
}

// PaymentList returns all purchases for back-office review.
func (a *API) PaymentList(w http.ResponseWriter, r *http.Request) error {
	query, err := parsePurchaseQueryParams(a.db.Model(&models.Purchase{}), r.URL.Query())
	if err != nil {
		return badRequestError("Bad parameters in query: %v", err)
	}

	offset, limit, err := paginate(w, r, query)
	if err != nil {
		return badRequestError("Bad Pagination Parameters: %v", err)
	}

	var purchases []models.Purchase
	if rsp := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&purchases); rsp.Error != nil {
		return internalServerError("Error during database query").WithInternalError(rsp.Error)
	}

	return sendJSON(w, http.StatusOK, purchases)
}

// PaymentListForOrder returns the purchases attached to one order.
func (a *API) PaymentListForOrder(w http.ResponseWriter, r *http.Request) error {
	return a.sendOrderPurchases(w, http.StatusOK, gcontext.GetOrderID(r.Context()))
}

// PaymentView returns a single purchase.
func (a *API) PaymentView(w http.ResponseWriter, r *http.Request) error {
	purchase, err := a.getPurchase(r)
	if err != nil {
		return err
	}
	return sendJSON(w, http.StatusOK, purchase)
}

// PaymentRefund reverses a paid purchase with its gateway and flips
// the payment state, revoking further downloads. The row stays for
// audit.
func (a *API) PaymentRefund(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := getLogEntry(r)

	purchase, err := a.getPurchase(r)
	if err != nil {
		return err
	}

	if purchase.PaymentState != models.PaidState {
		return badRequestError("Only paid purchases can be refunded")
	}

	provider := gcontext.GetPaymentProviders(ctx)[purchase.PaymentProvider]
	if provider == nil {
		return badRequestError("Payment provider '%s' is not enabled", purchase.PaymentProvider)
	}

	refund, err := provider.NewRefunder(ctx, r, log)
	if err != nil {
		return badRequestError("Error preparing refund: %v", err)
	}

	refundID, err := refund(purchase.ProcessorID, purchase.ProductPrice)
	if err != nil {
		if payments.IsRejection(err) {
			return httpError(http.StatusPaymentRequired, "Refund was not accepted: %v", err)
		}
		return internalServerError("Error refunding payment").WithInternalError(err)
	}

	rsp := a.db.Model(purchase).Update("payment_state", models.RefundedState)
	if rsp.Error != nil {
		return internalServerError("Error saving refund").WithInternalError(rsp.Error)
	}

	log.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"refund_id":   refundID,
	}).Info("purchase refunded")
	return sendJSON(w, http.StatusOK, purchase)
}

func (a *API) getPurchase(r *http.Request) (*models.Purchase, error) {
	purchaseID := chi.URLParam(r, "payment_id")
	logEntrySetField(r, "payment_id", purchaseID)

	purchase := &models.Purchase{}
	rsp := a.db.First(purchase, "id = ?", purchaseID)
	if rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, notFoundError("Payment not found")
		}
		return nil, internalServerError("Error during database query").WithInternalError(rsp.Error)
	}
	return purchase, nil
}
