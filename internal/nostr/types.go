// Package nostr provides the Nostr event, signing, and relay layer for nsyte.
// All event construction, signing, and relay I/O flows through this package.
//
// Key abstractions:
//   - Signer: local-key or NIP-46 bunker signing interface
//   - RelayPool: per-relay publish/subscribe with per-relay accounting
//   - event builders: manifest, delete, profile, relay-list, server-list
package nostr

import (
	"encoding/hex"
	"fmt"

	"fiatjaf.com/nostr"
)

// NsiteKind is the replaceable event kind naming one site file by path and digest.
const NsiteKind = 34128

// Standard kinds reused as-is.
const (
	KindProfile   = 0     // NIP-01 profile metadata
	KindDelete    = 5     // NIP-09 deletion request
	KindRelayList = 10002 // NIP-65 relay list metadata
	KindServerList = 10063 // Blossom server list
)

// ClientTagValue is the value of the "client" tag added to every event nsyte publishes.
const ClientTagValue = "nsyte"

// ClientTag returns the ["client", "nsyte"] tag added to every event this tool publishes.
func ClientTag() nostr.Tag {
	return nostr.Tag{"client", ClientTagValue}
}

// PathTag returns the "d" tag identifying a site path for NIP-33 replaceable dedup.
func PathTag(path string) nostr.Tag {
	return nostr.Tag{"d", path}
}

// DigestTag returns the "x" tag carrying a file's content digest.
func DigestTag(digest string) nostr.Tag {
	return nostr.Tag{"x", digest}
}

// --- Type conversion helpers ---
// fiatjaf.com/nostr represents IDs, pubkeys and secret keys as fixed-size byte
// arrays rather than string aliases; these helpers bridge to/from hex.

// IDToString converts a nostr.ID to its hex string representation.
func IDToString(id nostr.ID) string {
	return fmt.Sprintf("%x", id[:])
}

// PubKeyFromHex converts a hex string to a nostr.PubKey. Returns the zero value
// if the string is not valid hex of the right length.
func PubKeyFromHex(hexStr string) nostr.PubKey {
	var pk nostr.PubKey
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != len(pk) {
		return pk
	}
	copy(pk[:], b)
	return pk
}

// PubKeyToString converts a nostr.PubKey to its hex string representation.
func PubKeyToString(pk nostr.PubKey) string {
	return fmt.Sprintf("%x", pk[:])
}

// SecretKeyFromHex converts a hex string to a nostr.SecretKey.
func SecretKeyFromHex(hexStr string) (nostr.SecretKey, error) {
	var sk nostr.SecretKey
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != len(sk) {
		return sk, fmt.Errorf("invalid secret key hex")
	}
	copy(sk[:], b)
	return sk, nil
}
