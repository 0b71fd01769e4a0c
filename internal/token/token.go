// Package token issues and validates admission tokens: short-lived JWTs that
// prove a user passed the waiting room for a specific ticket stock.
package token

import (
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type AdmissionClaims struct {
	TicketStockID string `json:"ticket_stock_id"`
	UserID        string `json:"user_id"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// Issue signs an admission token that expires with the admission deadline.
func (i *Issuer) Issue(ticketStockID, userID string, deadline time.Time) (string, error) {
	claims := AdmissionClaims{
		TicketStockID: ticketStockID,
		UserID:        userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(deadline),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate checks the signature, expiry, and that the token was issued for
// the given ticket stock.
func (i *Issuer) Validate(ticketStockID, tokenString string) bool {
	claims := AdmissionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})

	if err != nil || parsed == nil || !parsed.Valid {
		log.Printf("Admission token validation failed - error: %v, ticketStockId attempted: %s", err, claims.TicketStockID)
		return false
	}
	if claims.TicketStockID != ticketStockID {
		log.Printf("Admission token stock mismatch - token stock: %s, requested stock: %s", claims.TicketStockID, ticketStockID)
		return false
	}

	return true
}
