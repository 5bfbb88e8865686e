package models

import (
	"fmt"
	"time"

	"github.com/lola-testbed/pub/internal/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// A User is a person who has signed up to the testbed.
// A User has exactly one source Actor and one destination Actor.
type User struct {
	ID                snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt         time.Time
	Email             string   `gorm:"size:255;uniqueIndex;not null"`
	Username          string   `gorm:"size:100;uniqueIndex;not null"`
	EncryptedPassword []byte   `gorm:"size:60;not null"`
	Actors            []*Actor `gorm:"constraint:OnDelete:CASCADE;"`
}

// ComparePassword reports whether password matches the user's stored hash.
func (u *User) ComparePassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.EncryptedPassword, []byte(password)) == nil
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Create creates a new user with the given credentials.
func (u *Users) Create(email, username, password string) (*User, error) {
	passwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{
		ID:                snowflake.Now(),
		Email:             email,
		Username:          username,
		EncryptedPassword: passwd,
	}
	if err := u.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail returns the user with the given email address.
func (u *Users) FindByEmail(email string) (*User, error) {
	var user User
	return &user, u.db.Where("email = ?", email).Take(&user).Error
}

// Authenticate returns the user with the given email if password matches.
func (u *Users) Authenticate(email, password string) (*User, error) {
	user, err := u.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if !user.ComparePassword(password) {
		return nil, fmt.Errorf("invalid password for %q", email)
	}
	return user, nil
}

// FindByUsername returns the user with the given username.
func (u *Users) FindByUsername(username string) (*User, error) {
	var user User
	return &user, u.db.Where("username = ?", username).Take(&user).Error
}

// Delete deletes user. Their actors, outboxes, notes, relationships and
// tokens are deleted with them.
func (u *Users) Delete(user *User) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&Token{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}
