package magiclink

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const linkKeyPrefix = "deeplink:processed:"

// LinkKey identifies a raw link in the processed-link cache without storing its tokens.
func LinkKey(raw string) string {
	sum := blake2b.Sum256([]byte(raw))
	return linkKeyPrefix + hex.EncodeToString(sum[:])
}
