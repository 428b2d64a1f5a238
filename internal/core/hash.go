package core

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// TokenLength is the number of hex characters kept from the content digest.
const TokenLength = 10

func Fingerprint(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])[:TokenLength]
}

func IsToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
