package security

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const keySize = 32

// #region key
// ensureKey reads the signing key at path, creating it on first use.
func ensureKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) >= keySize {
		return data[:keySize], nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("key dir: %w", err)
	}
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return key, nil
}

// #endregion key
