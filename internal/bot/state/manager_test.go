package state

import (
	"testing"
	"time"

	"github.com/plantguardian/garden-helper/internal/domain"
)

func TestManagerUserState(t *testing.T) {
	m := NewManager()
	if got := m.GetUserState(1); got != None {
		t.Fatalf("default state = %q, want %q", got, None)
	}
	m.SetUserState(1, WaitingForLoginName)
	if got := m.GetUserState(1); got != WaitingForLoginName {
		t.Fatalf("state = %q", got)
	}
	if got := m.GetUserState(2); got != None {
		t.Fatalf("other chat state = %q, want %q", got, None)
	}
}

func TestManagerTempData(t *testing.T) {
	m := NewManager()
	if _, ok := m.GetTempData(1, TempLoginName); ok {
		t.Fatal("temp data should start empty")
	}
	m.SetTempData(1, TempLoginName, "gardener")
	m.SetTempData(1, TempRegEmail, "g@example.com")

	if v, ok := m.GetTempData(1, TempLoginName); !ok || v != "gardener" {
		t.Fatalf("temp data = %q ok=%v", v, ok)
	}
	m.ClearTempData(1)
	if _, ok := m.GetTempData(1, TempLoginName); ok {
		t.Fatal("temp data survived clear")
	}
}

func TestManagerSessionLifecycle(t *testing.T) {
	m := NewManager()
	if _, ok := m.GetSession(1); ok {
		t.Fatal("session should start absent")
	}

	session := domain.Session{UserID: 42, Username: "gardener", IssuedAt: time.Now()}
	if err := m.SaveSession(1, session); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, ok := m.GetSession(1)
	if !ok || got.UserID != 42 {
		t.Fatalf("session = %+v ok=%v", got, ok)
	}

	// Saving again replaces the previous record; one session per chat.
	if err := m.SaveSession(1, domain.Session{UserID: 7, Username: "other"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, _ = m.GetSession(1)
	if got.UserID != 7 {
		t.Fatalf("session not replaced: %+v", got)
	}

	m.ClearSession(1)
	if _, ok := m.GetSession(1); ok {
		t.Fatal("session survived clear")
	}
}
