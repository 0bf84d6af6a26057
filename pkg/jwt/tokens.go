package jwt

import (
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT payload: the subject user id and its role. Tokens
// are stateless; expiry is the only lifecycle mechanism.
type Claims struct {
	Role string `json:"role"`
	jwtlib.RegisteredClaims
}

// UserID returns the numeric subject of the claims.
func (c *Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// GenerateToken issues a signed HS256 token for the user with the given ttl.
func GenerateToken(userID int, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "taskpulse",
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates the signature and expiry and extracts the claims.
func Parse(token string, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}
