package nostr

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"fiatjaf.com/nostr"
	"fiatjaf.com/nostr/nip46"
)

// Signer signs Nostr events. All signing in nsyte goes through this interface so the
// signing backend (local key vs. NIP-46 bunker) can be swapped without touching the
// Uploader, Publisher, or Deletion Orchestrator.
//
// Implementations MUST be safe to call Sign sequentially from a single dedicated
// goroutine; callers that need concurrent signing serialize calls through a queue
// (see SerialSigner) rather than assuming Signer itself is concurrency-safe.
type Signer interface {
	// Sign computes the event id, sets the pubkey, and signs the event in place.
	Sign(ctx context.Context, event *nostr.Event) error

	// PublicKey returns the signer's public key as lowercase hex.
	PublicKey() string

	// Close releases any held resources (e.g. a bunker connection).
	Close() error
}

// --- Local key signer ---

// LocalSigner signs with a private key held in process memory.
// Used for --privatekey and non-interactive CI invocations; the key never touches disk
// through this type (persistence, if any, is the caller's responsibility).
type LocalSigner struct {
	secretKey nostr.SecretKey
	pubkey    string
}

// NewLocalSigner creates a signer from a hex-encoded private key.
func NewLocalSigner(privkeyHex string) (*LocalSigner, error) {
	sk, err := SecretKeyFromHex(privkeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	pub, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("deriving public key: %w", err)
	}
	return &LocalSigner{secretKey: sk, pubkey: fmt.Sprintf("%x", pub)}, nil
}

func (s *LocalSigner) Sign(_ context.Context, event *nostr.Event) error {
	event.PubKey = PubKeyFromHex(s.pubkey)
	return event.Sign(s.secretKey)
}

func (s *LocalSigner) PublicKey() string { return s.pubkey }

func (s *LocalSigner) Close() error { return nil }

// --- NIP-46 bunker signer ---

// BunkerSigner signs events via a remote NIP-46 "bunker", so the site's private key
// never lives in the nsyte process. Used for --bunker and stored-nbunksec flows.
type BunkerSigner struct {
	mu     sync.Mutex
	pubkey string
	bunker *nip46.BunkerClient
}

// NewBunkerSigner connects to a NIP-46 bunker identified by a bunker:// URI.
func NewBunkerSigner(ctx context.Context, bunkerURI string) (*BunkerSigner, error) {
	if !strings.HasPrefix(bunkerURI, "bunker://") {
		return nil, fmt.Errorf("invalid bunker URI: must start with bunker://")
	}

	clientKeyHex := nostr.GeneratePrivateKey()
	clientKey, err := SecretKeyFromHex(clientKeyHex)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral client key: %w", err)
	}

	bunker, err := nip46.ConnectBunker(ctx, clientKey, bunkerURI, nil, func(status string) {
		log.Printf("[nsyte/signer] bunker status: %s", status)
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to bunker: %w", err)
	}

	pubkey, err := bunker.GetPublicKey(ctx)
	if err != nil {
		bunker.Close()
		return nil, fmt.Errorf("getting public key from bunker: %w", err)
	}

	return &BunkerSigner{pubkey: pubkey, bunker: bunker}, nil
}

// NewBunkerSignerFromToken connects using a stored token instead of a bunker:// URI
// typed on the command line; the token itself is resolved by the caller from the OS
// secret store before this is called, and MUST be discarded immediately after. The
// token is passed to NewBunkerSigner unchanged, so it must itself be a bunker:// URI
// (the form buildSigner stores); any other encoding is rejected.
func NewBunkerSignerFromToken(ctx context.Context, nbunksec string) (*BunkerSigner, error) {
	return NewBunkerSigner(ctx, nbunksec)
}

func (s *BunkerSigner) Sign(ctx context.Context, event *nostr.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.PubKey = PubKeyFromHex(s.pubkey)
	return s.bunker.SignEvent(ctx, event)
}

func (s *BunkerSigner) PublicKey() string { return s.pubkey }

func (s *BunkerSigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bunker != nil {
		s.bunker.Close()
		s.bunker = nil
	}
	return nil
}
