package nostr

import (
	"time"

	"fiatjaf.com/nostr"
)

// NewManifestEvent builds an unsigned kind-34128 file-manifest event naming path and
// digest. The caller signs it via a Signer before publishing.
func NewManifestEvent(path, digest string) *nostr.Event {
	return &nostr.Event{
		Kind:      NsiteKind,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags: nostr.Tags{
			PathTag(path),
			DigestTag(digest),
			ClientTag(),
		},
		Content: "",
	}
}

// NewDeleteEvent builds an unsigned kind-5 deletion request referencing the given
// manifest event ids, with a short human-readable note.
func NewDeleteEvent(eventIDs []string, note string) *nostr.Event {
	tags := make(nostr.Tags, 0, len(eventIDs)+1)
	for _, id := range eventIDs {
		tags = append(tags, nostr.Tag{"e", id})
	}
	tags = append(tags, ClientTag())

	return &nostr.Event{
		Kind:      KindDelete,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags:      tags,
		Content:   note,
	}
}

// NewProfileEvent builds an unsigned kind-0 profile event from a pre-marshaled JSON
// profile payload (the caller owns field selection; this package just tags and kinds
// it correctly).
func NewProfileEvent(profileJSON string) *nostr.Event {
	return &nostr.Event{
		Kind:      KindProfile,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags:      nostr.Tags{ClientTag()},
		Content:   profileJSON,
	}
}

// RelayMarker identifies the read/write capability of a relay entry in a relay list.
type RelayMarker string

const (
	RelayRead      RelayMarker = "read"
	RelayWrite     RelayMarker = "write"
	RelayReadWrite RelayMarker = ""
)

// RelayListEntry is one relay URL plus its read/write marker for a kind-10002 event.
type RelayListEntry struct {
	URL    string
	Marker RelayMarker
}

// NewRelayListEvent builds an unsigned kind-10002 relay list event.
func NewRelayListEvent(relays []RelayListEntry) *nostr.Event {
	tags := make(nostr.Tags, 0, len(relays)+1)
	for _, r := range relays {
		if r.Marker == RelayReadWrite {
			tags = append(tags, nostr.Tag{"r", r.URL})
		} else {
			tags = append(tags, nostr.Tag{"r", r.URL, string(r.Marker)})
		}
	}
	tags = append(tags, ClientTag())

	return &nostr.Event{
		Kind:      KindRelayList,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags:      tags,
		Content:   "",
	}
}

// NewServerListEvent builds an unsigned kind-10063 Blossom server list event.
func NewServerListEvent(servers []string) *nostr.Event {
	tags := make(nostr.Tags, 0, len(servers)+1)
	for _, s := range servers {
		tags = append(tags, nostr.Tag{"server", s})
	}
	tags = append(tags, ClientTag())

	return &nostr.Event{
		Kind:      KindServerList,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags:      tags,
		Content:   "",
	}
}

// PathFromTags returns the "d" tag value (site path) from a manifest event's tags, or
// "" if absent.
func PathFromTags(tags nostr.Tags) string {
	return firstTagValue(tags, "d")
}

// DigestFromTags returns the "x" tag value (content digest) from a manifest event's
// tags, or "" if absent.
func DigestFromTags(tags nostr.Tags) string {
	return firstTagValue(tags, "x")
}

func firstTagValue(tags nostr.Tags, key string) string {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == key {
			return t[1]
		}
	}
	return ""
}
