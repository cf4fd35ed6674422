package cryptox

import (
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
)

// LoadMasterKey decodes the process master key from its hex representation
// and validates the length. There is no fallback or default: a missing or
// malformed key yields common.ErrInvalidMasterKey and the caller must abort
// startup rather than run with degraded security.
//
// The returned key is loaded once at startup, never persisted, and treated
// as immutable for the process lifetime; after initialization it is safe
// for unsynchronized concurrent reads.
func LoadMasterKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, common.ErrInvalidMasterKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid hex", common.ErrInvalidMasterKey)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", common.ErrInvalidMasterKey, len(key))
	}
	return key, nil
}
