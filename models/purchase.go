package models

import (
	"encoding/json"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
)

// PaidState is the payment state of a confirmed purchase.
const PaidState = "paid"

// FailedState is the payment state of a rejected purchase attempt.
const FailedState = "failed"

// RefundedState is the payment state of a refunded purchase.
const RefundedState = "refunded"

// PaymentStates are the possible values for the PaymentState field.
// Exactly one lowercase representation exists; call sites must use
// these constants, never string literals.
var PaymentStates = []string{
	PendingState,
	PaidState,
	FailedState,
	RefundedState,
}

// ErrDownloadLimitReached is returned by RegisterDownload when the
// quota is already spent.
var ErrDownloadLimitReached = errors.New("download limit reached")

// Purchase is the durable entitlement created by a confirmed payment.
// The product title and price are frozen at purchase time; refunds
// flip the payment state but never delete the row.
type Purchase struct {
	ID string `json:"id"`

	OrderID   string `json:"order_id" gorm:"unique_index:purchases_order_product"`
	ProductID string `json:"product_id" gorm:"unique_index:purchases_order_product"`

	UserID string `json:"user_id" sql:"index"`
	Email  string `json:"email"`

	ProductTitle string `json:"product_title"`
	ProductPrice uint64 `json:"product_price"`

	DownloadCount uint64 `json:"download_count"`
	DownloadLimit uint64 `json:"download_limit"`

	PaymentState    string `json:"payment_state" sql:"index"`
	PaymentProvider string `json:"payment_provider"`
	ProcessorID     string `json:"processor_id"`

	// RawProviderPayload keeps the gateway's confirmation response for
	// audit. Never interpreted after the fact.
	RawProviderPayload string `json:"-" sql:"type:text"`

	Active bool `json:"active"`

	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`

	CreatedAt time.Time  `json:"created_at" sql:"index"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-" sql:"index"`
}

// TableName returns the database table name for the Purchase model.
func (Purchase) TableName() string {
	return tableName("purchases")
}

// NewPurchase freezes a line item into a paid entitlement.
func NewPurchase(order *Order, item *LineItem, limit uint64, provider, processorID string, rawPayload map[string]interface{}) *Purchase {
	p := &Purchase{
		ID:              uuid.NewRandom().String(),
		OrderID:         order.ID,
		ProductID:       item.ProductID,
		UserID:          order.UserID,
		Email:           order.Email,
		ProductTitle:    item.Title,
		ProductPrice:    item.Price,
		DownloadLimit:   limit,
		PaymentState:    PaidState,
		PaymentProvider: provider,
		ProcessorID:     processorID,
		Active:          true,
	}
	if rawPayload != nil {
		if data, err := json.Marshal(rawPayload); err == nil {
			p.RawProviderPayload = string(data)
		}
	}
	return p
}

// GetPaidPurchase loads the downloadable entitlement for a user and
// product, if one exists.
func GetPaidPurchase(db *gorm.DB, userID, productID string) (*Purchase, error) {
	purchase := &Purchase{}
	rsp := db.First(purchase,
		"user_id = ? AND product_id = ? AND payment_state = ? AND active = ?",
		userID, productID, PaidState, true)
	if rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, ModelNotFoundError{"purchase"}
		}
		return nil, rsp.Error
	}
	return purchase, nil
}

// HasPaidPurchase reports whether the user already owns the product.
func HasPaidPurchase(db *gorm.DB, userID, productID string) (bool, error) {
	_, err := GetPaidPurchase(db, userID, productID)
	if err != nil {
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RegisterDownload spends one unit of the quota. The check and the
// increment are a single conditional UPDATE, so two concurrent
// downloads racing on the last unit cannot both win: the loser sees
// zero affected rows and gets ErrDownloadLimitReached.
func (p *Purchase) RegisterDownload(tx *gorm.DB) error {
	now := time.Now()
	rsp := tx.Model(&Purchase{}).
		Where("id = ? AND download_count < download_limit", p.ID).
		Updates(map[string]interface{}{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_download_at": now,
		})
	if rsp.Error != nil {
		return rsp.Error
	}
	if rsp.RowsAffected == 0 {
		return ErrDownloadLimitReached
	}
	p.DownloadCount++
	p.LastDownloadAt = &now
	return nil
}

// Remaining returns how many downloads the entitlement still allows.
func (p *Purchase) Remaining() uint64 {
	if p.DownloadCount >= p.DownloadLimit {
		return 0
	}
	return p.DownloadLimit - p.DownloadCount
}
