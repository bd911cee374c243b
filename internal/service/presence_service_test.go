package service

import (
	"testing"

	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/repository/memory"
)

type fakeBroadcaster struct {
	snapshots [][]domain.Identity
}

func (b *fakeBroadcaster) BroadcastPresence(identities []domain.Identity) {
	b.snapshots = append(b.snapshots, identities)
}

func (b *fakeBroadcaster) last(t *testing.T) []domain.Identity {
	t.Helper()
	if len(b.snapshots) == 0 {
		t.Fatalf("no snapshot broadcast")
	}
	return b.snapshots[len(b.snapshots)-1]
}

func TestBindBroadcastsSnapshot(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	svc := NewPresenceService(memory.NewPresenceRepository(), broadcaster)

	if err := svc.Bind("alice@example.com", "conn-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	got := broadcaster.last(t)
	if len(got) != 1 || got[0] != "alice@example.com" {
		t.Fatalf("got snapshot %v, want [alice@example.com]", got)
	}
}

func TestUnbindBroadcastsShrunkSnapshot(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	svc := NewPresenceService(memory.NewPresenceRepository(), broadcaster)

	_ = svc.Bind("alice@example.com", "conn-1")
	_ = svc.Bind("bob@example.com", "conn-2")

	if err := svc.Unbind("conn-1"); err != nil {
		t.Fatalf("Unbind: %v", err)
	}

	got := broadcaster.last(t)
	if len(got) != 1 || got[0] != "bob@example.com" {
		t.Fatalf("got snapshot %v, want [bob@example.com]", got)
	}
}

func TestLookupPassesThrough(t *testing.T) {
	svc := NewPresenceService(memory.NewPresenceRepository(), &fakeBroadcaster{})
	_ = svc.Bind("alice@example.com", "conn-1")

	entry, err := svc.Lookup("alice@example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.ConnectionID != "conn-1" {
		t.Fatalf("got connection %q, want conn-1", entry.ConnectionID)
	}
}
