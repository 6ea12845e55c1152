package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/pborman/uuid"

	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

type productRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Tags        string  `json:"tags"`
	Price       *uint64 `json:"price"`
	FileKey     string  `json:"file_key"`
	Active      *bool   `json:"active"`
}

func (a *API) withProductID(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	productID := chi.URLParam(r, "product_id")
	if uuid.Parse(productID) == nil {
		return nil, badRequestError("Invalid product id: %s", productID)
	}

	logEntrySetField(r, "product_id", productID)
	return gcontext.WithProductID(r.Context(), productID), nil
}

// ProductList returns the catalog. Anonymous callers only see active
// products, admins see everything.
func (a *API) ProductList(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := getLogEntry(r)

	query := a.db.Model(&models.Product{})
	if !gcontext.IsAdmin(ctx) {
		query = query.Where("active = ?", true)
	}

	query, err := parseProductQueryParams(query, r.URL.Query())
	if err != nil {
		return badRequestError("Bad parameters in query: %v", err)
	}

	offset, limit, err := paginate(w, r, query)
	if err != nil {
		return badRequestError("Bad Pagination Parameters: %v", err)
	}

	var products []models.Product
	if result := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&products); result.Error != nil {
		return internalServerError("Error during database query").WithInternalError(result.Error)
	}

	log.WithField("product_count", len(products)).Debugf("Successfully retrieved %d products", len(products))
	return sendJSON(w, http.StatusOK, products)
}

// ProductView returns a single catalog entry.
func (a *API) ProductView(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	productID := gcontext.GetProductID(ctx)

	var product *models.Product
	var err error
	if gcontext.IsAdmin(ctx) {
		product, err = models.GetProduct(a.db, productID)
	} else {
		product, err = models.GetActiveProduct(a.db, productID)
	}
	if err != nil {
		if models.IsNotFoundError(err) {
			return notFoundError("Product not found")
		}
		return internalServerError("Error during database query").WithInternalError(err)
	}

	return sendJSON(w, http.StatusOK, product)
}

// ProductCreate adds a product to the catalog.
func (a *API) ProductCreate(w http.ResponseWriter, r *http.Request) error {
	params := &productRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read product parameters: %v", err)
	}

	if params.Title == "" {
		return badRequestError("Product title is required")
	}
	if params.FileKey == "" {
		return badRequestError("Product file_key is required")
	}

	var price uint64
	if params.Price != nil {
		price = *params.Price
	}

	product := models.NewProduct(params.Title, params.Description, params.Category, price, params.FileKey)
	product.Tags = params.Tags
	if params.Active != nil {
		product.Active = *params.Active
	}

	if result := a.db.Create(product); result.Error != nil {
		return internalServerError("Error saving product").WithInternalError(result.Error)
	}

	logEntrySetField(r, "product_id", product.ID)
	return sendJSON(w, http.StatusCreated, product)
}

// ProductUpdate modifies a catalog entry.
func (a *API) ProductUpdate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	product, err := models.GetProduct(a.db, gcontext.GetProductID(ctx))
	if err != nil {
		if models.IsNotFoundError(err) {
			return notFoundError("Product not found")
		}
		return internalServerError("Error during database query").WithInternalError(err)
	}

	params := &productRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read product parameters: %v", err)
	}

	if params.Title != "" {
		product.Title = params.Title
	}
	if params.Description != "" {
		product.Description = params.Description
	}
	if params.Category != "" {
		product.Category = params.Category
	}
	if params.Tags != "" {
		product.Tags = params.Tags
	}
	if params.FileKey != "" {
		product.FileKey = params.FileKey
	}
	if params.Price != nil {
		product.Price = *params.Price
	}
	if params.Active != nil {
		product.Active = *params.Active
	}

	if result := a.db.Save(product); result.Error != nil {
		return internalServerError("Error saving product").WithInternalError(result.Error)
	}

	return sendJSON(w, http.StatusOK, product)
}

// ProductDeactivate takes a product off sale. Existing purchases keep
// the row around, so this never deletes.
func (a *API) ProductDeactivate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	product, err := models.GetProduct(a.db, gcontext.GetProductID(ctx))
	if err != nil {
		if models.IsNotFoundError(err) {
			return notFoundError("Product not found")
		}
		return internalServerError("Error during database query").WithInternalError(err)
	}

	if result := a.db.Model(product).Update("active", false); result.Error != nil {
		return internalServerError("Error saving product").WithInternalError(result.Error)
	}

	getLogEntry(r).WithField("product_id", product.ID).Info("product deactivated")
	return sendJSON(w, http.StatusOK, product)
}
