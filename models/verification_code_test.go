package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodeLifecycle(t *testing.T) {
	db := testDB(t)

	code, err := CreateVerificationCode(db, "a@example.com", 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, code.Code, 6)

	require.NoError(t, VerifyEmailCode(db, "a@example.com", code.Code, 5))

	// consumed on success
	err = VerifyEmailCode(db, "a@example.com", code.Code, 5)
	assert.Equal(t, ErrCodeInvalid, err)
}

func TestVerificationCodeReissueReplaces(t *testing.T) {
	db := testDB(t)

	first, err := CreateVerificationCode(db, "a@example.com", 10*time.Minute)
	require.NoError(t, err)
	second, err := CreateVerificationCode(db, "a@example.com", 10*time.Minute)
	require.NoError(t, err)

	var count uint64
	require.NoError(t, db.Model(&EmailVerificationCode{}).Where("email = ?", "a@example.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	if first.Code != second.Code {
		assert.Equal(t, ErrCodeInvalid, VerifyEmailCode(db, "a@example.com", first.Code, 5))
	}
	require.NoError(t, VerifyEmailCode(db, "a@example.com", second.Code, 5))
}

func TestVerificationCodeExpiry(t *testing.T) {
	db := testDB(t)

	code, err := CreateVerificationCode(db, "a@example.com", -time.Minute)
	require.NoError(t, err)

	err = VerifyEmailCode(db, "a@example.com", code.Code, 5)
	assert.Equal(t, ErrCodeExpired, err)

	// the expired row is purged
	record := &EmailVerificationCode{}
	rsp := db.First(record, "email = ?", "a@example.com")
	assert.True(t, rsp.RecordNotFound())
}

func TestVerificationCodeAttemptBudget(t *testing.T) {
	db := testDB(t)

	code, err := CreateVerificationCode(db, "a@example.com", 10*time.Minute)
	require.NoError(t, err)

	wrong := "000000"
	if code.Code == wrong {
		wrong = "000001"
	}
	for i := 0; i < 4; i++ {
		assert.Equal(t, ErrCodeInvalid, VerifyEmailCode(db, "a@example.com", wrong, 5))
	}
	assert.Equal(t, ErrTooManyAttempts, VerifyEmailCode(db, "a@example.com", wrong, 5))

	// budget spent, even the right code no longer verifies
	assert.Equal(t, ErrCodeInvalid, VerifyEmailCode(db, "a@example.com", code.Code, 5))
}
