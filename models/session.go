package models

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pborman/uuid"
)

// Session is a server-managed login session. It is the first identity
// strategy checked on each request, ahead of the stateless token.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id" sql:"index"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for the Session model.
func (Session) TableName() string {
	return tableName("sessions")
}

// NewSession creates a session for the user with the given lifetime.
func NewSession(userID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewRandom().String(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// GetSession resolves a live session. Expired sessions are purged on
// sight and reported as missing.
func GetSession(db *gorm.DB, id string) (*Session, error) {
	session := &Session{}
	if rsp := db.First(session, "id = ?", id); rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, nil
		}
		return nil, rsp.Error
	}
	if time.Now().After(session.ExpiresAt) {
		db.Delete(session)
		return nil, nil
	}
	return session, nil
}

// DeleteSession removes a session, e.g. on logout.
func DeleteSession(db *gorm.DB, id string) error {
	return db.Delete(&Session{}, "id = ?", id).Error
}
