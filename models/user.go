package models

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pborman/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an account that can stage orders and download purchases.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email" gorm:"unique_index"`
	Name  string `json:"name"`

	PasswordHash string `json:"-"`

	Admin  bool `json:"admin"`
	Active bool `json:"active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`

	PurchaseCount int64 `json:"purchase_count,omitempty" gorm:"-"`
}

// TableName returns the database table name for the User model.
func (User) TableName() string {
	return tableName("users")
}

// NewUser creates an active account with a hashed credential.
func NewUser(email, name, password string) (*User, error) {
	user := &User{
		ID:     uuid.NewRandom().String(),
		Email:  email,
		Name:   name,
		Active: true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPassword hashes and stores the credential.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// Authenticate checks a candidate password against the stored hash.
func (u *User) Authenticate(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// GetUser loads a user by id.
func GetUser(db *gorm.DB, id string) (*User, error) {
	user := &User{}
	if rsp := db.First(user, "id = ?", id); rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, nil
		}
		return nil, rsp.Error
	}
	return user, nil
}

// GetUserByEmail loads a user by email.
func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	user := &User{}
	if rsp := db.First(user, "email = ?", email); rsp.Error != nil {
		if rsp.RecordNotFound() {
			return nil, nil
		}
		return nil, rsp.Error
	}
	return user, nil
}
