package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// Account roles carried in the token. Parents buy subjects and register
// children; children only read the catalog.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// AccessTokenClaims identifies the account a bearer token was issued to.
type AccessTokenClaims struct {
	AccountID uint   `json:"account_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues an HS256 token for the account valid for ttl.
func GenerateAccessToken(accountID uint, role string, ttl time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for token generation")
	}
	now := time.Now()
	claims := AccessTokenClaims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken verifies signature, algorithm, expiry and role and returns
// the claims. Any failure is reported as ErrInvalidToken.
func ParseAccessToken(token, secret string) (*AccessTokenClaims, error) {
	if secret == "" {
		return nil, errors.New("secret is required for token verification")
	}
	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.AccountID == 0 {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleParent && claims.Role != RoleChild {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
