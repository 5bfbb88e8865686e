package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lola-testbed/pub/internal/snowflake"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// PortabilityScope is the OAuth scope granting access to an actor's
// account portability data.
const PortabilityScope = "activitypub_account_portability"

// A Token is an OAuth access token issued to a User.
type Token struct {
	AccessToken string `gorm:"size:64;primaryKey;autoIncrement:false"`
	CreatedAt   time.Time
	UserID      snowflake.ID `gorm:"not null;index"`
	User        *User        `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Scope       string       `gorm:"size:255;not null"`
	ExpiresAt   time.Time    `gorm:"not null"`
	Revoked     bool         `gorm:"not null;default:false"`
}

// Scopes returns the whitespace separated scopes of the token.
func (t *Token) Scopes() []string {
	return strings.Fields(t.Scope)
}

// HasScope reports whether scope is one of the token's scopes.
func (t *Token) HasScope(scope string) bool {
	return slices.Contains(t.Scopes(), scope)
}

// Expired reports whether the token has expired at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Valid reports whether the token may be used at now.
func (t *Token) Valid(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}

type Tokens struct {
	db *gorm.DB
}

func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// Lookup returns the token with the given access token, or gorm.ErrRecordNotFound.
// Lookup does not check whether the token has expired or been revoked.
func (t *Tokens) Lookup(ctx context.Context, token string) (*Token, error) {
	var tok Token
	return &tok, t.db.WithContext(ctx).Where("access_token = ?", token).Take(&tok).Error
}

// Create issues a new token for user with the given scope, valid for ttl.
func (t *Tokens) Create(user *User, scope string, ttl time.Duration) (*Token, error) {
	tok := &Token{
		AccessToken: strings.ReplaceAll(uuid.New().String(), "-", ""),
		UserID:      user.ID,
		Scope:       strings.Join(strings.Fields(scope), " "),
		ExpiresAt:   time.Now().Add(ttl).UTC(),
	}
	return tok, t.db.Create(tok).Error
}

// Revoke marks the token revoked. Revoking an unknown token returns
// gorm.ErrRecordNotFound.
func (t *Tokens) Revoke(ctx context.Context, token string) error {
	res := t.db.WithContext(ctx).Model(&Token{}).Where("access_token = ?", token).Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Purge deletes tokens which expired or were revoked before now and
// returns the number deleted.
func (t *Tokens) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := t.db.WithContext(ctx).Where("revoked = ? OR expires_at <= ?", true, now).Delete(&Token{})
	return res.RowsAffected, res.Error
}
