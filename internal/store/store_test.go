package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.Get(KeyAccessToken); err != nil || ok {
		t.Fatalf("expected missing key; got ok=%v err=%v", ok, err)
	}
	if err := s.Set(KeyAccessToken, "tok"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, ok, err := s.Get(KeyAccessToken)
	if err != nil || !ok || v != "tok" {
		t.Fatalf("expected tok; got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Delete(KeyAccessToken); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Get(KeyAccessToken); ok {
		t.Fatalf("expected key gone after delete")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := openTestStore(t)

	type profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := s.SetJSON(KeyUser, profile{ID: "u1", Name: "Ada"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var got profile
	ok, err := s.GetJSON(KeyUser, &got)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.ID != "u1" || got.Name != "Ada" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLedgerPerRoom(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LoadLedger("room-a"); err != nil || ok {
		t.Fatalf("expected no ledger yet; ok=%v err=%v", ok, err)
	}

	counts := map[string]map[string]int{"m1": {"👍": 2}}
	if err := s.SaveLedger("room-a", counts); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.SaveLedger("room-b", map[string]map[string]int{"m9": {"🔥": 1}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, ok, err := s.LoadLedger("room-a")
	if err != nil || !ok {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	if got["m1"]["👍"] != 2 {
		t.Fatalf("room-a ledger mismatch: %v", got)
	}
	if other, _, _ := s.LoadLedger("room-b"); other["m9"]["🔥"] != 1 {
		t.Fatalf("room-b ledger mismatch: %v", other)
	}
}
