// Package devseed loads JSON seed files used to pre-populate development
// stores (the public key cache and the sandbox relayer).
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// KeySeedEntry is one public key record in a seed file.
type KeySeedEntry struct {
	Address      string `json:"address"`
	PublicKey    string `json:"publicKey"`
	PublicParams string `json:"publicParams"`
	Timestamp    *int64 `json:"timestamp,omitempty"`
}

// LoadKeySeed reads a JSON array of KeySeedEntry from path.
func LoadKeySeed(path string) ([]KeySeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return ParseKeySeed(data)
}

// ParseKeySeed decodes a seed document. Every entry needs an address.
func ParseKeySeed(data []byte) ([]KeySeedEntry, error) {
	var entries []KeySeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("devseed: decode key seed: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Address) == "" {
			return nil, fmt.Errorf("devseed: entry %d missing address", i)
		}
	}
	return entries, nil
}
