package session

import "chat-client/internal/store"

// Theme returns the persisted UI theme, empty when unset.
func (s *Session) Theme() (string, error) {
	v, _, err := s.store.Get(store.KeyTheme)
	return v, err
}

func (s *Session) SetTheme(name string) error {
	return s.store.Set(store.KeyTheme, name)
}

// SetPendingInvite remembers an invite code followed while unauthenticated,
// to be consumed after the next successful login.
func (s *Session) SetPendingInvite(code string) error {
	return s.store.Set(store.KeyPendingInvite, code)
}

// TakePendingInvite returns the stored invite code, if any, and removes it.
func (s *Session) TakePendingInvite() (string, error) {
	code, ok, err := s.store.Get(store.KeyPendingInvite)
	if err != nil || !ok {
		return "", err
	}
	if err := s.store.Delete(store.KeyPendingInvite); err != nil {
		return "", err
	}
	return code, nil
}
