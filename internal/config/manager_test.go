package config

import "testing"

func TestManagerReloadUpdatesGet(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "server.yaml", "pingInterval: 30\n")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := manager.Get().Server.PingInterval; got != 30 {
		t.Fatalf("got pingInterval %d, want 30", got)
	}

	// Edit the file and reload: consumers calling Get afterwards must see
	// the new value.
	writeConfigFile(t, dir, "server.yaml", "pingInterval: 5\n")
	if err := manager.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := manager.Get().Server.PingInterval; got != 5 {
		t.Fatalf("got pingInterval %d after reload, want 5", got)
	}
}

func TestManagerUpdateCallback(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var got *AppConfig
	manager.SetUpdateCallback(func(cfg *AppConfig) { got = cfg })

	writeConfigFile(t, dir, "call.yaml", "inviteTimeoutMsec: 9000\n")
	if err := manager.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got == nil {
		t.Fatalf("update callback never fired")
	}
	if got.Call.InviteTimeoutMsec != 9000 {
		t.Fatalf("got inviteTimeoutMsec %d, want 9000", got.Call.InviteTimeoutMsec)
	}
}
