// Package wallet gates the city behind a connected wallet.
// The simulation never consults it; only the HTTP and WebSocket surfaces do.
package wallet

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether addr looks like an EVM account address.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// Provider is the opaque wallet capability: whether a wallet is connected and which one.
type Provider interface {
	Connected() bool
	Address() string
}

// Session is the in-process Provider for the single local player.
type Session struct {
	mu          sync.RWMutex
	address     string
	connectedAt time.Time
}

// Connect records addr as the connected wallet.
func (s *Session) Connect(addr string) error {
	if !ValidAddress(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	s.mu.Lock()
	s.address = strings.ToLower(addr)
	s.connectedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Disconnect forgets the wallet.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.address = ""
	s.mu.Unlock()
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address != ""
}

func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Authority issues and verifies HS256 session tokens whose subject is a wallet address.
type Authority struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthority creates an authority. An empty secret gets a random per-process key.
func NewAuthority(secret, issuer string, ttl time.Duration) *Authority {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authority{key: key, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for addr.
func (a *Authority) Issue(addr string) (string, time.Time, error) {
	if !ValidAddress(addr) {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.MapClaims{
		"sub": strings.ToLower(addr),
		"iss": a.issuer,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken verifies tok and returns the wallet address it was issued for.
func (a *Authority) ParseToken(tok string) (string, error) {
	if tok == "" {
		return "", ErrMissingToken
	}
	t, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !t.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims, ok := t.Claims.(jwt.MapClaims); ok {
		if sub, ok := claims["sub"].(string); ok && ValidAddress(sub) {
			return sub, nil
		}
	}
	return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
}

type ctxKey struct{}

// AddressFromContext returns the wallet address RequireAuth attached to the request.
func AddressFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(ctxKey{}).(string)
	return addr, ok
}

// TokenFromRequest reads a bearer token, falling back to the token query
// parameter because browsers cannot set headers on WebSocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid wallet token.
func (a *Authority) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, err := a.ParseToken(TokenFromRequest(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, addr)))
	})
}

// RequireWallet extends RequireAuth: the token must also belong to the wallet
// p reports as connected. Tokens outlive disconnects and wallet switches.
func (a *Authority) RequireWallet(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, _ := AddressFromContext(r.Context())
			if !p.Connected() || !strings.EqualFold(p.Address(), addr) {
				http.Error(w, "wallet not connected", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
