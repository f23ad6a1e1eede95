package session

import (
	"fmt"
	"sync"
	"time"

	"chat-client/internal/models"
	"chat-client/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the credential pair and the authenticated user profile,
// backed by the local store so a restart does not force re-authentication.
// All mutations persist before updating the in-memory copy.
type Session struct {
	store *store.Store

	mu      sync.Mutex
	access  string
	refresh string
	user    *models.User
}

// Load hydrates a Session from the local store.
func Load(st *store.Store) (*Session, error) {
	s := &Session{store: st}

	access, _, err := st.Get(store.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, _, err := st.Get(store.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	var user models.User
	ok, err := st.GetJSON(store.KeyUser, &user)
	if err != nil {
		return nil, err
	}

	s.access = access
	s.refresh = refresh
	if ok {
		s.user = &user
	}
	return s, nil
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access != "" && s.user != nil
}

// SetTokens stores a new access/refresh pair.
func (s *Session) SetTokens(access, refresh string) error {
	if err := s.store.Set(store.KeyAccessToken, access); err != nil {
		return err
	}
	if err := s.store.Set(store.KeyRefreshToken, refresh); err != nil {
		return err
	}
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()
	return nil
}

func (s *Session) SetUser(u *models.User) error {
	if err := s.store.SetJSON(store.KeyUser, u); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return nil
}

// Clear drops the credentials and profile, locally and from the store.
func (s *Session) Clear() error {
	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyUser} {
		if err := s.store.Delete(key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.user = nil
	s.mu.Unlock()
	return nil
}

// ExpiresAt reads the expiry claim from the access token. The signature is
// not verified; the client holds no signing key and only uses the claim to
// report token age.
func (s *Session) ExpiresAt() (time.Time, error) {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()
	if access == "" {
		return time.Time{}, fmt.Errorf("no access token")
	}

	token, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("access token has no expiry claim")
	}
	return exp.Time, nil
}
