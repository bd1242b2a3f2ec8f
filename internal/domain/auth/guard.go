package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidCredentials is returned for a wrong username or password.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")

// ErrInvalidToken is returned when a session token fails verification.
var ErrInvalidToken = fmt.Errorf("invalid or expired token")

// RateLimitedError is returned while the failure window holds logins closed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// FailureWindow tracks recent failed login attempts across all clients. Once
// the threshold is reached inside the window, further attempts are refused
// until the oldest tracked failure ages out. A successful login clears it.
type FailureWindow struct {
	mu       sync.Mutex
	maxFails int
	window   time.Duration
	failures []time.Time
	now      func() time.Time
}

func NewFailureWindow(maxFails int, window time.Duration) *FailureWindow {
	return &FailureWindow{
		maxFails: maxFails,
		window:   window,
		now:      time.Now,
	}
}

// Check reports whether logins are currently refused, and for how long.
func (w *FailureWindow) Check() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune()
	if len(w.failures) < w.maxFails {
		return 0, false
	}
	retryAfter := w.window - w.now().Sub(w.failures[0])
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return retryAfter, true
}

// RecordFailure notes one failed attempt.
func (w *FailureWindow) RecordFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	w.failures = append(w.failures, w.now())
}

// Reset clears all tracked failures.
func (w *FailureWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = nil
}

func (w *FailureWindow) prune() {
	cutoff := w.now().Add(-w.window)
	kept := w.failures[:0]
	for _, t := range w.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.failures = kept
}

// Guard authenticates the single configured console user and issues signed
// session tokens. Token validation is self-contained; no external identity
// provider is consulted.
type Guard struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	window   *FailureWindow
	logger   zerolog.Logger
	now      func() time.Time
}

func NewGuard(username, password, secret string, ttl time.Duration, window *FailureWindow, logger zerolog.Logger) *Guard {
	return &Guard{
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		window:   window,
		logger:   logger.With().Str("component", "session_guard").Logger(),
		now:      time.Now,
	}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Login verifies credentials and returns a signed session token with its
// lifetime. While the failure window is closed it refuses without checking
// credentials, so the retry delay leaks nothing about validity.
func (g *Guard) Login(ctx context.Context, username, password string) (string, time.Duration, error) {
	if retryAfter, limited := g.window.Check(); limited {
		g.logger.Warn().Dur("retry_after", retryAfter).Msg("login refused by failure window")
		return "", 0, &RateLimitedError{RetryAfter: retryAfter}
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !userOK || !passOK {
		g.window.RecordFailure()
		g.logger.Warn().Str("username", username).Msg("failed login attempt")
		return "", 0, ErrInvalidCredentials
	}
	g.window.Reset()

	now := g.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign session token: %w", err)
	}

	g.logger.Info().Str("username", g.username).Msg("login succeeded")
	return token, g.ttl, nil
}

// Validate parses and verifies a session token, returning the principal it
// represents.
func (g *Guard) Validate(ctx context.Context, tokenString string) (*Principal, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject != g.username {
		return nil, ErrInvalidToken
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Principal{
		ID:         claims.Subject,
		Username:   claims.Subject,
		AuthMethod: AuthMethodJWT,
		ExpiresAt:  expiresAt,
	}, nil
}
