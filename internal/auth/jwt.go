// Package auth issues and verifies session tokens, hashes passwords, and
// guards the API with a cookie-based authentication middleware.
//
// SESSION FLOW:
//  1. Client POSTs credentials to /api/auth/login (or registers).
//  2. Server issues a signed JWT and stores it in the HttpOnly auth_token cookie.
//  3. The browser sends the cookie on every request; Authenticate validates it
//     and puts the resolved model.Caller into the request context.
//  4. Logout clears the cookie. The server keeps no session state, so a copied
//     token stays valid until it expires.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"userId":7,"username":"alice","sub":"7","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/notes/internal/model"
)

const (
	issuer       = "notes"
	adminSubject = "admin"
)

// MinSecretLength is the shortest signing secret NewTokenService accepts.
const MinSecretLength = 16

// TokenService signs and verifies session tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService whose tokens are valid for ttl.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid. The session cookie uses the same value.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. Regular users carry their database id;
// the admin identity carries isAdmin and no id.
type claims struct {
	UserID   int64  `json:"userId,omitempty"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a token for the caller with the service's TTL.
func (s *TokenService) Generate(caller model.Caller) (string, error) {
	return s.GenerateWithDuration(caller, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use it
// to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(caller model.Caller, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Username: caller.Name(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	switch v := caller.(type) {
	case model.RegularUser:
		c.UserID = v.ID
		c.Subject = strconv.FormatInt(v.ID, 10)
	case model.AdminUser:
		c.IsAdmin = true
		c.Subject = adminSubject
	default:
		return "", fmt.Errorf("auth: unsupported caller type %T", caller)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the caller it was issued to.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and has an expiry at all
//   - Issuer matches
//   - Algorithm is HS256 (rejects "none" and algorithm confusion)
func (s *TokenService) Validate(tokenStr string) (model.Caller, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}

	switch {
	case c.IsAdmin:
		if c.Username == "" {
			return nil, errors.New("auth: admin token has no username")
		}
		return model.AdminUser{Username: c.Username}, nil
	case c.UserID > 0:
		return model.RegularUser{ID: c.UserID, Username: c.Username}, nil
	default:
		return nil, errors.New("auth: token has no user id")
	}
}
