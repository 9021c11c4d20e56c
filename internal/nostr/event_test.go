package nostr

import "testing"

func TestNewManifestEventTags(t *testing.T) {
	evt := NewManifestEvent("/index.html", "abc123")

	if evt.Kind != NsiteKind {
		t.Errorf("expected kind %d, got %d", NsiteKind, evt.Kind)
	}
	if PathFromTags(evt.Tags) != "/index.html" {
		t.Errorf("expected path tag /index.html, got %q", PathFromTags(evt.Tags))
	}
	if DigestFromTags(evt.Tags) != "abc123" {
		t.Errorf("expected digest tag abc123, got %q", DigestFromTags(evt.Tags))
	}
}

func TestNewDeleteEventReferencesAllIDs(t *testing.T) {
	evt := NewDeleteEvent([]string{"id1", "id2"}, "cleanup")

	if evt.Kind != KindDelete {
		t.Errorf("expected kind %d, got %d", KindDelete, evt.Kind)
	}
	count := 0
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "e" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 e-tags, got %d", count)
	}
	if evt.Content != "cleanup" {
		t.Errorf("expected content 'cleanup', got %q", evt.Content)
	}
}

func TestNewRelayListEventMarksReadWrite(t *testing.T) {
	evt := NewRelayListEvent([]RelayListEntry{
		{URL: "wss://a.example", Marker: RelayReadWrite},
		{URL: "wss://b.example", Marker: RelayRead},
	})

	if evt.Kind != KindRelayList {
		t.Errorf("expected kind %d, got %d", KindRelayList, evt.Kind)
	}

	var sawBare, sawMarked bool
	for _, tag := range evt.Tags {
		if len(tag) == 2 && tag[0] == "r" && tag[1] == "wss://a.example" {
			sawBare = true
		}
		if len(tag) == 3 && tag[0] == "r" && tag[1] == "wss://b.example" && tag[2] == "read" {
			sawMarked = true
		}
	}
	if !sawBare {
		t.Error("expected a bare r tag for the read-write relay")
	}
	if !sawMarked {
		t.Error("expected a marked r tag for the read-only relay")
	}
}

func TestNewServerListEventOneTagPerServer(t *testing.T) {
	evt := NewServerListEvent([]string{"https://a.example", "https://b.example"})
	count := 0
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "server" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 server tags, got %d", count)
	}
}

func TestFirstTagValueMissingKeyReturnsEmpty(t *testing.T) {
	evt := NewProfileEvent(`{"name":"site"}`)
	if PathFromTags(evt.Tags) != "" {
		t.Errorf("expected empty path for a profile event, got %q", PathFromTags(evt.Tags))
	}
}
