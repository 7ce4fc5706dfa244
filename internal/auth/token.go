// Package auth issues and validates the bearer tokens used by the HTTP API.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	customerdomain "github.com/stayloop/stayloop/internal/customer/domain"
)

const tokenTTL = 24 * time.Hour

var (
	ErrMissingSecret = errors.New("auth secret not configured")
	ErrInvalidToken  = errors.New("invalid_token")
)

type Claims struct {
	Role customerdomain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is a verified token subject.
type Identity struct {
	CustomerID snowflake.ID
	Role       customerdomain.Role
}

type TokenIssuer struct {
	secret []byte
	issuer string
}

func NewTokenIssuer(secret, issuer string) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer}, nil
}

func (t *TokenIssuer) Issue(customer *customerdomain.Customer, now time.Time) (string, error) {
	claims := Claims{
		Role: customer.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   customer.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates the token signature and expiry and returns the identity it
// carries. Any parse or claim failure maps to ErrInvalidToken.
func (t *TokenIssuer) Parse(token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	customerID, err := snowflake.ParseString(claims.Subject)
	if err != nil || customerID == 0 {
		return nil, ErrInvalidToken
	}

	role := claims.Role
	if role == "" {
		role = customerdomain.RoleCustomer
	}
	return &Identity{CustomerID: customerID, Role: role}, nil
}
