package api

import (
	"net/http"

	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

// PurchaseList returns the caller's paid entitlements. Purchases whose
// product has since been deactivated are hidden, the rows themselves
// stay untouched.
func (a *API) PurchaseList(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := getLogEntry(r)

	purchasesTable := models.Purchase{}.TableName()
	productsTable := models.Product{}.TableName()

	query := a.db.Model(&models.Purchase{}).
		Joins("join "+productsTable+" as products on "+purchasesTable+".product_id = products.id and products.active = ?", true).
		Where(purchasesTable+".user_id = ? and "+purchasesTable+".payment_state = ? and "+purchasesTable+".active = ?",
			gcontext.GetUserID(ctx), models.PaidState, true)

	offset, limit, err := paginate(w, r, query)
	if err != nil {
		return badRequestError("Bad Pagination Parameters: %v", err)
	}

	var purchases []models.Purchase
	if rsp := query.Offset(offset).Limit(limit).Order(purchasesTable + ".created_at desc").Find(&purchases); rsp.Error != nil {
		return internalServerError("Error during database query").WithInternalError(rsp.Error)
	}

	log.WithField("purchase_count", len(purchases)).Debugf("Successfully retrieved %d purchases", len(purchases))
	return sendJSON(w, http.StatusOK, purchases)
}
