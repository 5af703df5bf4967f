// Package auth provides functionality for generating and parsing JSON Web Tokens (JWT)
// for user authentication. It defines custom claims, token generation, and validation logic,
// along with the cookie handling and HTTP middleware that carry the token between requests.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TOKENEXP defines the token expiration duration.
const TOKENEXP = time.Hour * 3

// Claims represents the custom JWT claims carried by a token.
// User holds the object posted to the login endpoint verbatim;
// it embeds jwt.RegisteredClaims for standard fields like expiration time.
type Claims struct {
	User map[string]interface{} `json:"user"`
	jwt.RegisteredClaims
}

// Email returns the email field embedded in the user claims,
// or the empty string when none is present.
func (c *Claims) Email() string {
	if c.User == nil {
		return ""
	}
	email, _ := c.User["email"].(string)
	return email
}

// GenerateToken creates a new JWT token embedding the given user object.
// It sets the expiration time based on TOKENEXP and signs the token with the provided secret.
func GenerateToken(user map[string]interface{}, secret string) (string, error) {
	claims := Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TOKENEXP)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the provided JWT token string against the secret and parses its claims.
// It returns the Claims if the token is valid, or an error otherwise.
func ParseToken(tokenStr string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
