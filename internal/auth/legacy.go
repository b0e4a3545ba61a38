package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the issuer claim stamped on every token this service
// accepts or mints.
const Issuer = "chromox-api"

// Claims represents the HMAC-signed JWT claims issued by the account
// gateway
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ValidateToken parses and validates an HMAC token. Only HS256 tokens
// carrying the expected issuer are accepted.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
