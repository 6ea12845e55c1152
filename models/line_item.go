package models

import "time"

// LineItem is a snapshot of one cart entry at staging time. Title,
// price and category are copied from the catalog so that later
// product edits never change what the buyer agreed to pay.
type LineItem struct {
	ID      int64  `json:"id"`
	OrderID string `json:"-" sql:"index"`

	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     uint64 `json:"price"`
	Category  string `json:"category"`

	CreatedAt time.Time  `json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// TableName returns the database table name for the LineItem model.
func (LineItem) TableName() string {
	return tableName("line_items")
}

// SnapshotOf builds a line item from the current catalog record.
func SnapshotOf(product *Product) *LineItem {
	return &LineItem{
		ProductID: product.ID,
		Title:     product.Title,
		Price:     product.Price,
		Category:  product.Category,
	}
}
