package main

import (
	"context"
	"fmt"

	"github.com/sandwichfarm/nsyte/internal/config"
	"github.com/sandwichfarm/nsyte/internal/nostr"
)

// buildSigner resolves one of the mutually exclusive signing sources nsyte accepts
// (raw private key, interactive bunker URI, or a stored nbunksec token) into a
// nostr.Signer wrapped for serialized concurrent use.
func buildSigner(ctx context.Context, privateKey, bunkerURI, nbunksec string, store config.SecretStore, projectID string) (nostr.Signer, error) {
	switch {
	case privateKey != "":
		local, err := nostr.NewLocalSigner(privateKey)
		if err != nil {
			return nil, err
		}
		return nostr.NewSerialSigner(local), nil

	case bunkerURI != "":
		bunker, err := nostr.NewBunkerSigner(ctx, bunkerURI)
		if err != nil {
			return nil, err
		}
		if store != nil {
			_ = store.Set(config.NbunksecKey(projectID), bunkerURI)
		}
		return nostr.NewSerialSigner(bunker), nil

	case nbunksec != "":
		bunker, err := nostr.NewBunkerSignerFromToken(ctx, nbunksec)
		if err != nil {
			return nil, err
		}
		return nostr.NewSerialSigner(bunker), nil

	default:
		if store == nil {
			return nil, fmt.Errorf("no signing source provided: pass --privatekey, --bunker, or configure a stored nbunksec")
		}
		stored, ok, err := store.Get(config.NbunksecKey(projectID))
		if err != nil {
			return nil, fmt.Errorf("reading stored bunker token: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("no signing source provided: pass --privatekey, --bunker, or configure a stored nbunksec")
		}
		bunker, err := nostr.NewBunkerSignerFromToken(ctx, stored)
		if err != nil {
			return nil, err
		}
		return nostr.NewSerialSigner(bunker), nil
	}
}
