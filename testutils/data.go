package testutils

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/studymall/studymall/models"
)

// Shared fixtures, reloaded per test database.
var (
	TestUser  *models.User
	AdminUser *models.User

	PaidProduct     *models.Product
	SecondProduct   *models.Product
	FreeProduct     *models.Product
	InactiveProduct *models.Product

	FirstOrder   *models.Order
	PaidPurchase *models.Purchase
)

// LoadTestData seeds a test database with a known catalog, two
// accounts, one staged order and one paid purchase.
func LoadTestData(db *gorm.DB) error {
	var err error
	TestUser, err = models.NewUser("buyer@example.com", "김철수", "password123")
	if err != nil {
		return errors.Wrap(err, "creating test user")
	}
	AdminUser, err = models.NewUser("admin@example.com", "관리자", "adminpass123")
	if err != nil {
		return errors.Wrap(err, "creating admin user")
	}
	AdminUser.Admin = true

	PaidProduct = models.NewProduct("수학의 정석 요약 노트", "핵심 개념 정리", "수학", 9900, "math/summary.pdf")
	SecondProduct = models.NewProduct("영어 단어장 중급", "중급 어휘 1200", "영어", 5500, "english/vocab.pdf")
	FreeProduct = models.NewProduct("무료 샘플 문제집", "맛보기 문제 20선", "수학", 0, "samples/free.pdf")
	InactiveProduct = models.NewProduct("절판된 과학 노트", "더 이상 판매하지 않음", "과학", 7700, "science/old.pdf")
	InactiveProduct.Active = false

	FirstOrder = models.NewOrder("order-0001", TestUser.ID, TestUser.Email, 30*time.Minute)
	FirstOrder.SetLineItems([]*models.LineItem{
		models.SnapshotOf(PaidProduct),
		models.SnapshotOf(SecondProduct),
	})

	for _, obj := range []interface{}{
		TestUser, AdminUser,
		PaidProduct, SecondProduct, FreeProduct, InactiveProduct,
	} {
		if rsp := db.Create(obj); rsp.Error != nil {
			return errors.Wrap(rsp.Error, "loading fixtures")
		}
	}
	if err := models.CreateOrder(db, FirstOrder); err != nil {
		return errors.Wrap(err, "loading order fixture")
	}

	paidOrder := models.NewOrder("order-0000", TestUser.ID, TestUser.Email, 30*time.Minute)
	paidOrder.SetLineItems([]*models.LineItem{models.SnapshotOf(SecondProduct)})
	paidOrder.State = models.ConfirmedState
	if err := models.CreateOrder(db, paidOrder); err != nil {
		return errors.Wrap(err, "loading paid order fixture")
	}

	PaidPurchase = models.NewPurchase(paidOrder, paidOrder.LineItems[0], 5, "stripe", "pi_fixture", nil)
	if rsp := db.Create(PaidPurchase); rsp.Error != nil {
		return errors.Wrap(rsp.Error, "loading purchase fixture")
	}

	return nil
}
