package fact

import (
	"crypto/sha512"
	"encoding/base64"
)

// ComputeHash returns the base64 (standard, padded) SHA-512 digest of a
// canonical string. Algorithm and encoding are fixed: other implementations
// must compute the same hash for the same fact.
func ComputeHash(canonical string) string {
	sum := sha512.Sum512([]byte(canonical))
	return base64.StdEncoding.EncodeToString(sum[:])
}
