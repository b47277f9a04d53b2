package universe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// Hash returns the SHA256 of the universe's instruments as canonical JSON.
// Order matters: the same pairs in another order hash differently.
func Hash(u contracts.Universe) (string, error) {
	jsonBytes, err := json.Marshal(u.Instruments)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
