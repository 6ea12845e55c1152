package models

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pborman/uuid"
)

// Product is a catalog entry for a downloadable document.
type Product struct {
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description" sql:"type:text"`
	Category    string `json:"category" sql:"index"`
	Tags        string `json:"tags"`

	// Price in minor currency units. Zero means the document is free
	// and bypasses checkout entirely.
	Price uint64 `json:"price"`

	Active bool `json:"active" sql:"index"`

	// FileKey locates the asset in the configured asset store.
	FileKey string `json:"-"`

	// DownloadCount is an aggregate, informational counter. The
	// per-purchase quota lives on Purchase.
	DownloadCount uint64 `json:"download_count"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-" sql:"index"`
}

// TableName returns the database table name for the Product model.
func (Product) TableName() string {
	return tableName("products")
}

// NewProduct creates an active catalog entry.
func NewProduct(title, description, category string, price uint64, fileKey string) *Product {
	return &Product{
		ID:          uuid.NewRandom().String(),
		Title:       title,
		Description: description,
		Category:    category,
		Price:       price,
		FileKey:     fileKey,
		Active:      true,
	}
}

// GetProduct loads a product by id regardless of its active flag.
func GetProduct(db *gorm.DB, id string) (*Product, error) {
	product := &Product{}
	if rsp := db.First(product, "id = ?", id); rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, ModelNotFoundError{"product"}
		}
		return nil, rsp.Error
	}
	return product, nil
}

// GetActiveProduct loads a product by id. A deactivated product is
// reported as not found: it is never purchasable or downloadable.
func GetActiveProduct(db *gorm.DB, id string) (*Product, error) {
	product := &Product{}
	if rsp := db.First(product, "id = ? AND active = ?", id, true); rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, ModelNotFoundError{"product"}
		}
		return nil, rsp.Error
	}
	return product, nil
}

// IncrementDownloadCount bumps the aggregate download counter.
func (p *Product) IncrementDownloadCount(tx *gorm.DB) error {
	return tx.Model(p).
		Update("download_count", gorm.Expr("download_count + 1")).
		Error
}
