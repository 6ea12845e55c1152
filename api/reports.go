package api

import (
	"net/http"

	"github.com/studymall/studymall/models"
)

type salesRow struct {
	Total uint64 `json:"total"`
	Count uint64 `json:"count"`
}

type productRow struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Sales     uint64 `json:"sales"`
	Total     uint64 `json:"total"`
	Downloads uint64 `json:"downloads"`
}

// SalesReport sums up paid purchases for a period.
func (a *API) SalesReport(w http.ResponseWriter, r *http.Request) error {
	query := a.db.
		Model(&models.Purchase{}).
		Select("coalesce(sum(product_price), 0) as total, count(*) as count").
		Where("payment_state = ?", models.PaidState)

	query, err := parseTimeQueryParams(query, r.URL.Query())
	if err != nil {
		return badRequestError(err.Error())
	}

	rows, err := query.Rows()
	if err != nil {
		return internalServerError("Database error").WithInternalError(err)
	}
	defer rows.Close()

	result := &salesRow{}
	if rows.Next() {
		if err := rows.Scan(&result.Total, &result.Count); err != nil {
			return internalServerError("Database error").WithInternalError(err)
		}
	}

	return sendJSON(w, http.StatusOK, result)
}

// ProductsReport breaks sales and download volume down per product.
func (a *API) ProductsReport(w http.ResponseWriter, r *http.Request) error {
	purchasesTable := models.Purchase{}.TableName()

	query := a.db.
		Model(&models.Purchase{}).
		Select(purchasesTable + ".product_id, " + purchasesTable + ".product_title, " +
			"count(*) as sales, sum(" + purchasesTable + ".product_price) as total, " +
			"sum(" + purchasesTable + ".download_count) as downloads").
		Where(purchasesTable+".payment_state = ?", models.PaidState).
		Group(purchasesTable + ".product_id, " + purchasesTable + ".product_title")

	query, err := parseTimeQueryParams(query, r.URL.Query())
	if err != nil {
		return badRequestError(err.Error())
	}

	rows, err := query.Rows()
	if err != nil {
		return internalServerError("Database error").WithInternalError(err)
	}
	defer rows.Close()

	result := []*productRow{}
	for rows.Next() {
		row := &productRow{}
		if err := rows.Scan(&row.ProductID, &row.Title, &row.Sales, &row.Total, &row.Downloads); err != nil {
			return internalServerError("Database error").WithInternalError(err)
		}
		result = append(result, row)
	}

	return sendJSON(w, http.StatusOK, result)
}
