package devseed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKeySeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	doc := `[{"address":"0x2Fb4341027eb1d2aD8B5D9708187df8633cAFA92","publicKey":"pk","publicParams":"pp","timestamp":1700000000000}]`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	entries, err := LoadKeySeed(path)
	if err != nil {
		t.Fatalf("LoadKeySeed: %v", err)
	}
	if len(entries) != 1 || entries[0].PublicKey != "pk" || entries[0].Timestamp == nil {
		t.Fatalf("unexpected entries %#v", entries)
	}
}

func TestParseKeySeedRejectsMissingAddress(t *testing.T) {
	if _, err := ParseKeySeed([]byte(`[{"publicKey":"pk"}]`)); err == nil {
		t.Fatalf("expected error for entry without address")
	}
	if _, err := ParseKeySeed([]byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadKeySeedMissingFile(t *testing.T) {
	if _, err := LoadKeySeed(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected read error")
	}
}
