package nostr

import (
	"fmt"
	"strings"
)

// HealthStatus summarizes relay connectivity and spool backlog for the `nsyte
// health` subcommand.
type HealthStatus struct {
	Relays       []RelayStatus `json:"relays"`
	SignerStatus string        `json:"signer_status"`
	SpoolCount   int           `json:"spool_count"`
}

// RelayStatus is one relay's connectivity at the moment health was checked.
type RelayStatus struct {
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
}

// CheckHealth reports connectivity for every relay in pool plus the spool backlog.
// signerStatus is a short caller-supplied label ("local key", "bunker", "not
// configured") since RelayPool has no visibility into the signing backend.
func CheckHealth(pool *RelayPool, spool *Spool, signerStatus string) *HealthStatus {
	status := &HealthStatus{SignerStatus: signerStatus}

	if pool != nil {
		connected := pool.ConnectedURLs()
		for _, url := range pool.URLs() {
			status.Relays = append(status.Relays, RelayStatus{URL: url, Connected: connected[url]})
		}
	}
	if spool != nil {
		status.SpoolCount = spool.Count()
	}
	return status
}

// FormatHealthStatus renders a HealthStatus as human-readable text.
func FormatHealthStatus(h *HealthStatus) string {
	var sb strings.Builder

	sb.WriteString("Relay status:\n")
	for _, r := range h.Relays {
		state := "disconnected"
		if r.Connected {
			state = "connected"
		}
		sb.WriteString(fmt.Sprintf("  %s (%s)\n", r.URL, state))
	}
	sb.WriteString(fmt.Sprintf("Signer: %s\n", h.SignerStatus))
	sb.WriteString(fmt.Sprintf("Spool: %d events pending\n", h.SpoolCount))
	return sb.String()
}
