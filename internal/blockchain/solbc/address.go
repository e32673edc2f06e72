// internal/blockchain/solbc/address.go
package solbc

import (
	"regexp"

	"github.com/mr-tron/base58"

	"github.com/digitaltitann/soltrader/internal/domain"
)

var base58Candidate = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

// IsValidMint reports whether s is a base58 encoded 32 byte public key.
func IsValidMint(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == 32
}

// ExtractMints returns the distinct public keys mentioned in texts, in
// order of first appearance. Wrapped SOL is ignored.
func ExtractMints(texts ...string) []string {
	seen := make(map[string]struct{})
	var mints []string
	for _, text := range texts {
		for _, candidate := range base58Candidate.FindAllString(text, -1) {
			if candidate == domain.SOLMint || !IsValidMint(candidate) {
				continue
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			mints = append(mints, candidate)
		}
	}
	return mints
}
