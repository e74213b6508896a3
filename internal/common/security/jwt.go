package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCookieName is the cookie the SPA sends its token in.
const TokenCookieName = "token"

type TokenManager struct {
	auth *jwtauth.JWTAuth
	exp  time.Duration
}

func NewTokenManager(secret []byte, exp time.Duration) *TokenManager {
	return &TokenManager{
		auth: jwtauth.New("HS256", secret, nil),
		exp:  exp,
	}
}

func (m *TokenManager) Auth() *jwtauth.JWTAuth { return m.auth }

func (m *TokenManager) TTL() time.Duration { return m.exp }

func (m *TokenManager) GenerateToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(m.exp).Unix(),
		"iat":     time.Now().Unix(),
	}
	_, tokenString, err := m.auth.Encode(claims)
	return tokenString, err
}

// TokenFromCookie reads the token cookie set at login.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// TokenFromRequest looks at the Authorization header first, then the cookie.
func TokenFromRequest(r *http.Request) string {
	if t := jwtauth.TokenFromHeader(r); t != "" {
		return t
	}
	return TokenFromCookie(r)
}

// HashToken is the blocklist key material for a raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
