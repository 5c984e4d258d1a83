// Package auth implements bearer-token authentication for the REST and
// WebSocket surfaces (grounded on the teacher's
// internal/infrastructure/websocket.JWTAuth/NoAuth pair). Authentication
// itself is out of the reasoner's core scope (spec §1 Non-goals); this
// package is the ambient "surrounding HTTP layer" collaborator the spec
// assumes exists.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing authentication token")
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrExpiredToken = errors.New("token has expired")
)

// Authenticator validates a request and returns the caller's subject.
type Authenticator interface {
	Authenticate(r *http.Request) (subject string, err error)
}

// Claims carries the reasoner's JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// JWTAuth validates HS256 bearer tokens against a shared secret.
type JWTAuth struct {
	secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{secret: []byte(secret)}
}

func (a *JWTAuth) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	return a.validate(strings.TrimPrefix(header, "Bearer "))
}

func (a *JWTAuth) validate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	subject := claims.Subject
	if subject == "" {
		subject = claims.RegisteredClaims.Subject
	}
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

// IssueToken mints a token for subject, expiring after ttl. Used by
// tests and any collaborator that needs to bootstrap a session.
func (a *JWTAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// NoAuth allows every request through unauthenticated, for local
// development when AUTH_ENABLED=false.
type NoAuth struct{}

func NewNoAuth() *NoAuth { return &NoAuth{} }

func (NoAuth) Authenticate(r *http.Request) (string, error) {
	if subject := r.URL.Query().Get("subject"); subject != "" {
		return subject, nil
	}
	return "anonymous", nil
}

type subjectKey struct{}

// ContextKey is exported for the rest/websocket packages to read the
// authenticated subject out of a request's context.
var ContextKey = subjectKey{}
