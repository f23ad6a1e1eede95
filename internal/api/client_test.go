package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chat-client/internal/session"
	"chat-client/internal/store"
)

func newTestSession(t *testing.T, access, refresh string) *session.Session {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sess, err := session.Load(st)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if access != "" || refresh != "" {
		if err := sess.SetTokens(access, refresh); err != nil {
			t.Fatalf("failed to seed tokens: %v", err)
		}
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBearerAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []struct{}{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, newTestSession(t, "tok-1", "ref-1"))
	if _, err := c.ListRooms(context.Background()); err != nil {
		t.Fatalf("list rooms failed: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer header; got %q", gotAuth)
	}
}

func TestConcurrentRefreshCoalesced(t *testing.T) {
	var refreshCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		// Hold the refresh open long enough for both 401s to arrive.
		time.Sleep(250 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
		})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []struct{}{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newTestSession(t, "stale", "ref-1")
	c := NewClient(srv.URL, 5*time.Second, sess)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ListRooms(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed after refresh: %v", i, err)
		}
	}
	if n := atomic.LoadInt64(&refreshCalls); n != 1 {
		t.Fatalf("expected exactly one refresh call; got %d", n)
	}
	if sess.AccessToken() != "fresh-access" || sess.RefreshToken() != "fresh-refresh" {
		t.Fatalf("tokens not rotated: %q %q", sess.AccessToken(), sess.RefreshToken())
	}
}

func TestSecondUnauthorizedPropagates(t *testing.T) {
	var endpointCalls, refreshCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
		})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&endpointCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "still no"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, newTestSession(t, "stale", "ref-1"))
	_, err := c.ListRooms(context.Background())
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 to propagate; got %v", err)
	}
	if n := atomic.LoadInt64(&endpointCalls); n != 2 {
		t.Fatalf("expected exactly one retry (2 calls); got %d", n)
	}
	if n := atomic.LoadInt64(&refreshCalls); n != 1 {
		t.Fatalf("expected exactly one refresh; got %d", n)
	}
}

func TestRefreshFailureLeavesSessionAndPropagatesOriginal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "refresh revoked"})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newTestSession(t, "stale", "ref-1")
	c := NewClient(srv.URL, 5*time.Second, sess)

	_, err := c.ListRooms(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Detail != "token expired" {
		t.Fatalf("expected original 401 to propagate; got %v", err)
	}
	// No implicit logout: the stale pair is untouched.
	if sess.AccessToken() != "stale" || sess.RefreshToken() != "ref-1" {
		t.Fatalf("session mutated on refresh failure: %q %q", sess.AccessToken(), sess.RefreshToken())
	}
}

func TestBackendDetailSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "invite expired"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, newTestSession(t, "tok", "ref"))
	_, err := c.JoinByInvite(context.Background(), "inv-1")
	if err == nil || !strings.Contains(err.Error(), "invite expired") {
		t.Fatalf("expected backend detail in error; got %v", err)
	}
}

func TestLoginStoresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  "acc-1",
			"refresh_token": "ref-1",
		})
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "no"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id": "u1", "email": "a@b.c", "display_name": "Ada",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newTestSession(t, "", "")
	c := NewClient(srv.URL, 5*time.Second, sess)
	user, err := c.Login(context.Background(), "a@b.c", "hunter22")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != "u1" || !sess.Authenticated() {
		t.Fatalf("session not populated: %+v authenticated=%v", user, sess.Authenticated())
	}
}

func TestWebsocketURLSchemes(t *testing.T) {
	sess := newTestSession(t, "", "")

	c := NewClient("http://chat.example:8000", time.Second, sess)
	u, err := c.WebsocketURL("r 1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != "ws://chat.example:8000/ws?room_id=r+1&user_id=u1" {
		t.Fatalf("unexpected ws url: %s", u)
	}

	c = NewClient("https://chat.example", time.Second, sess)
	u, _ = c.WebsocketURL("r1", "u1")
	if !strings.HasPrefix(u, "wss://") {
		t.Fatalf("expected wss for secure origin; got %s", u)
	}
}
