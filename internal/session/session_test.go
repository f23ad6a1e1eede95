package session

import (
	"path/filepath"
	"testing"
	"time"

	"chat-client/internal/models"
	"chat-client/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSessionPersistsAcrossLoads(t *testing.T) {
	st := openTestStore(t)

	s, err := Load(st)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Authenticated() {
		t.Fatalf("fresh session should not be authenticated")
	}

	if err := s.SetTokens("acc-1", "ref-1"); err != nil {
		t.Fatalf("set tokens failed: %v", err)
	}
	if err := s.SetUser(&models.User{ID: "u1", Email: "a@b.c", DisplayName: "Ada"}); err != nil {
		t.Fatalf("set user failed: %v", err)
	}

	// A second load over the same store simulates a process restart.
	reloaded, err := Load(st)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.Authenticated() {
		t.Fatalf("expected reloaded session to be authenticated")
	}
	if reloaded.AccessToken() != "acc-1" || reloaded.RefreshToken() != "ref-1" {
		t.Fatalf("tokens lost: %q %q", reloaded.AccessToken(), reloaded.RefreshToken())
	}
	if u := reloaded.User(); u == nil || u.ID != "u1" {
		t.Fatalf("user lost: %+v", reloaded.User())
	}
}

func TestClearRemovesEverything(t *testing.T) {
	st := openTestStore(t)
	s, _ := Load(st)
	_ = s.SetTokens("acc", "ref")
	_ = s.SetUser(&models.User{ID: "u1"})

	if err := s.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if s.Authenticated() || s.AccessToken() != "" || s.User() != nil {
		t.Fatalf("session not cleared")
	}
	reloaded, _ := Load(st)
	if reloaded.Authenticated() {
		t.Fatalf("cleared session survived reload")
	}
}

func TestPendingInviteConsumedOnce(t *testing.T) {
	st := openTestStore(t)
	s, _ := Load(st)

	if code, err := s.TakePendingInvite(); err != nil || code != "" {
		t.Fatalf("expected no pending invite; got %q err=%v", code, err)
	}
	if err := s.SetPendingInvite("inv-42"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	code, err := s.TakePendingInvite()
	if err != nil || code != "inv-42" {
		t.Fatalf("expected inv-42; got %q err=%v", code, err)
	}
	if code, _ := s.TakePendingInvite(); code != "" {
		t.Fatalf("pending invite should be consume-once; got %q", code)
	}
}

func TestTheme(t *testing.T) {
	st := openTestStore(t)
	s, _ := Load(st)

	if theme, err := s.Theme(); err != nil || theme != "" {
		t.Fatalf("expected empty theme; got %q err=%v", theme, err)
	}
	if err := s.SetTheme("dark"); err != nil {
		t.Fatalf("set theme failed: %v", err)
	}
	if theme, _ := s.Theme(); theme != "dark" {
		t.Fatalf("theme not persisted: %q", theme)
	}
}

func TestExpiresAtReadsClaim(t *testing.T) {
	st := openTestStore(t)
	s, _ := Load(st)

	if _, err := s.ExpiresAt(); err == nil {
		t.Fatalf("expected error without a token")
	}

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	_ = s.SetTokens(signed, "ref")

	got, err := s.ExpiresAt()
	if err != nil {
		t.Fatalf("expires-at failed: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expected expiry %v; got %v", exp, got)
	}
}
