package wallet

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const addr = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

func TestValidAddress(t *testing.T) {
	tests := map[string]bool{
		addr: true,
		"0x0000000000000000000000000000000000000000": true,
		"AbCdEf0123456789abcdef0123456789ABCDEF01":   false,
		"0xAbCdEf0123456789abcdef0123456789ABCDEF0":  false,
		"0xAbCdEf0123456789abcdef0123456789ABCDEF0G": false,
		"": false,
	}
	for in, want := range tests {
		if got := ValidAddress(in); got != want {
			t.Errorf("ValidAddress(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSession(t *testing.T) {
	var s Session
	if s.Connected() {
		t.Fatal("zero session should be disconnected")
	}
	if err := s.Connect("nope"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}
	if err := s.Connect(addr); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.Connected() || s.Address() != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Errorf("session = %v %q", s.Connected(), s.Address())
	}
	s.Disconnect()
	if s.Connected() {
		t.Errorf("still connected after Disconnect")
	}
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthority("secret", "defi-city", time.Hour)

	tok, exp, err := a.Issue(addr)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry %v too soon", exp)
	}
	got, err := a.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Errorf("subject = %q", got)
	}

	if _, _, err := a.Issue("0x123"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Issue(bad) err = %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	a := NewAuthority("secret", "defi-city", time.Hour)
	other := NewAuthority("other-secret", "defi-city", time.Hour)
	wrongIssuer := NewAuthority("secret", "someone-else", time.Hour)

	foreign, _, _ := other.Issue(addr)
	misissued, _, _ := wrongIssuer.Issue(addr)

	expired := NewAuthority("secret", "defi-city", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, _ := expired.Issue(addr)

	if _, err := a.ParseToken(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty token err = %v", err)
	}
	for name, tok := range map[string]string{
		"garbage":      "not.a.jwt",
		"wrong key":    foreign,
		"wrong issuer": misissued,
		"expired":      stale,
	} {
		if _, err := a.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	a := NewAuthority("", "defi-city", time.Hour)
	tok, _, _ := a.Issue(addr)

	var seen string
	h := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AddressFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/state", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen == "" {
		t.Errorf("bearer: status %d address %q", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws?token="+tok, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("query token: status %d, want 204", rec.Code)
	}
}

func TestRequireWalletFollowsSession(t *testing.T) {
	a := NewAuthority("", "defi-city", time.Hour)
	var s Session
	h := a.RequireWallet(&s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	call := func(tok string) int {
		req := httptest.NewRequest("GET", "/api/state", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	tok, _, _ := a.Issue(addr)
	if got := call(tok); got != http.StatusUnauthorized {
		t.Errorf("before connect: status %d, want 401", got)
	}
	if err := s.Connect(addr); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := call(tok); got != http.StatusNoContent {
		t.Errorf("connected: status %d, want 204", got)
	}

	other := "0x1111111111111111111111111111111111111111"
	if err := s.Connect(other); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := call(tok); got != http.StatusUnauthorized {
		t.Errorf("after switch, old token: status %d, want 401", got)
	}
	otherTok, _, _ := a.Issue(other)
	if got := call(otherTok); got != http.StatusNoContent {
		t.Errorf("after switch, new token: status %d, want 204", got)
	}

	s.Disconnect()
	if got := call(otherTok); got != http.StatusUnauthorized {
		t.Errorf("after disconnect: status %d, want 401", got)
	}
}
