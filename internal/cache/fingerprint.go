package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pulse-platform/assistant/internal/composer"
)

// Fingerprint derives the deterministic cache key for a request from its
// semantically stable inputs: the normalized message, the composed context,
// and the serialized command list. Anything per-request (timestamps, request
// ids) must stay out of these inputs. encoding/json sorts map keys, so the
// command serialization is canonical.
func Fingerprint(message, contextStr string, commands []composer.Command) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(message)), " ")

	serialized, err := json.Marshal(commands)
	if err != nil {
		// Commands hold only strings and ints; Marshal cannot fail on them.
		serialized = []byte("[]")
	}

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0x1f})
	h.Write([]byte(contextStr))
	h.Write([]byte{0x1f})
	h.Write(serialized)
	return hex.EncodeToString(h.Sum(nil))
}
