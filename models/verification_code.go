package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// ErrCodeExpired is returned when the verification window has closed.
var ErrCodeExpired = errors.New("verification code expired")

// ErrCodeInvalid is returned for a wrong code with attempts left.
var ErrCodeInvalid = errors.New("verification code does not match")

// ErrTooManyAttempts is returned once the attempt budget is spent.
var ErrTooManyAttempts = errors.New("too many verification attempts")

// EmailVerificationCode is a short-lived one-time code bound to an
// email address during signup. A row is deleted on success, on expiry
// and on attempt exhaustion; an inert row never verifies anything.
type EmailVerificationCode struct {
	ID    uint   `json:"-" gorm:"primary_key"`
	Email string `json:"email" sql:"index"`
	Code  string `json:"-"`

	Attempts int `json:"-"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for the EmailVerificationCode model.
func (EmailVerificationCode) TableName() string {
	return tableName("email_verification_codes")
}

// Expired reports whether the code is past its window.
func (c *EmailVerificationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CreateVerificationCode issues a fresh 6-digit code for the email,
// replacing any previous one.
func CreateVerificationCode(db *gorm.DB, email string, ttl time.Duration) (*EmailVerificationCode, error) {
	code, err := sixDigitCode()
	if err != nil {
		return nil, err
	}

	if rsp := db.Delete(&EmailVerificationCode{}, "email = ?", email); rsp.Error != nil {
		return nil, rsp.Error
	}

	record := &EmailVerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(ttl),
	}
	if rsp := db.Create(record); rsp.Error != nil {
		return nil, rsp.Error
	}
	return record, nil
}

// VerifyEmailCode consumes a verification code. A successful match
// deletes the row (single use). Expired and attempt-exhausted rows are
// also deleted, which forces the signup to restart from a fresh code.
func VerifyEmailCode(db *gorm.DB, email, code string, maxAttempts int) error {
	record := &EmailVerificationCode{}
	if rsp := db.First(record, "email = ?", email); rsp.Error != nil {
		if rsp.RecordNotFound() {
			return ErrCodeInvalid
		}
		return rsp.Error
	}

	if record.Expired(time.Now()) {
		db.Delete(record)
		return ErrCodeExpired
	}

	if record.Code != code {
		record.Attempts++
		if record.Attempts >= maxAttempts {
			db.Delete(record)
			return ErrTooManyAttempts
		}
		if rsp := db.Save(record); rsp.Error != nil {
			return rsp.Error
		}
		return ErrCodeInvalid
	}

	return db.Delete(record).Error
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", errors.Wrap(err, "generating verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
