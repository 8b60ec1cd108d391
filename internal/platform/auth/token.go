package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediflow/mediflow/internal/platform/apperr"
)

// Role names match the values stored in the users table.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	return s == RolePatient || s == RoleDoctor || s == RoleAdmin
}

// Principal identifies the authenticated user carried by a session token.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// Claims is the JWT payload for a session token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenIssuer signs and parses session tokens with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed session token for the principal.
func (ti *TokenIssuer) Issue(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Username: p.Username,
		Role:     p.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnknown, "signing session token", err)
	}
	return signed, nil
}

// Parse validates a session token and returns the principal it carries.
func (ti *TokenIssuer) Parse(tokenStr string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Principal{}, apperr.E(apperr.KindUnauthenticated, "invalid or expired session")
	}
	if claims.Subject == "" || !ValidRole(claims.Role) {
		return Principal{}, apperr.E(apperr.KindUnauthenticated, "malformed session claims")
	}
	return Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
