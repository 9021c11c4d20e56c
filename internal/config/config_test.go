package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(ProjectPath(dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, cfg.Concurrency)
	}
	if len(cfg.Relays) != 0 {
		t.Errorf("expected no relays on a fresh config, got %v", cfg.Relays)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ProjectPath(dir)

	cfg := New()
	cfg.Relays = []string{"wss://relay.example.com"}
	cfg.Servers = []string{"https://blossom.example.com"}
	cfg.PublishRelayList = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Relays) != 1 || loaded.Relays[0] != "wss://relay.example.com" {
		t.Errorf("unexpected relays after round trip: %v", loaded.Relays)
	}
	if len(loaded.Servers) != 1 || loaded.Servers[0] != "https://blossom.example.com" {
		t.Errorf("unexpected servers after round trip: %v", loaded.Servers)
	}
	if !loaded.PublishRelayList {
		t.Error("expected PublishRelayList to survive the round trip")
	}
}

func TestSaveNeverInlinesSecrets(t *testing.T) {
	dir := t.TempDir()
	path := ProjectPath(dir)

	cfg := New()
	cfg.BunkerPubkey = "deadbeef"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// BunkerPubkey is not a secret (it's a public key) and is expected on disk;
	// this test documents that ProjectConfig has no field that could hold a
	// private key or nbunksec token, by construction of the struct's json tags.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BunkerPubkey != "deadbeef" {
		t.Errorf("expected bunker pubkey to persist, got %q", loaded.BunkerPubkey)
	}
}

func TestEnvSecretStoreRoundTrip(t *testing.T) {
	t.Setenv("NSYTE_DISABLE_KEYCHAIN", "true")
	if !DisableKeychain() {
		t.Fatal("expected DisableKeychain to be true")
	}

	store := NewEnvSecretStore("NSYTE_SECRET_")
	key := NbunksecKey("myproject")

	if _, ok, err := store.Get(key); err != nil || ok {
		t.Fatalf("expected no value before Set, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(key, "bunker://abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := store.Get(key)
	if err != nil || !ok || v != "bunker://abc123" {
		t.Fatalf("expected stored value, got v=%q ok=%v err=%v", v, ok, err)
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(key); ok {
		t.Fatal("expected value to be gone after Delete")
	}
}

func TestProjectPathJoinsUnderDotNsyte(t *testing.T) {
	got := ProjectPath("/srv/site")
	want := filepath.Join("/srv/site", ".nsyte", "config.json")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
