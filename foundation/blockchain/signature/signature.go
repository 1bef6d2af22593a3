// Package signature provides the hashing support used to link blocks and to
// check proof of work solutions.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash returns the hex encoded SHA-256 digest of the canonical encoding of the
// value. A value that can't be encoded is a programming error.
func Hash(value any) string {
	data, err := Canonical(value)
	if err != nil {
		panic(fmt.Sprintf("signature: unable to encode %T: %s", value, err))
	}

	return HashBytes(data)
}

// HashBytes returns the hex encoded SHA-256 digest of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Canonical returns the canonical encoding for the value. Struct fields are
// encoded in declaration order and map keys are sorted, so two values that are
// structurally equal always produce the same bytes.
func Canonical(value any) ([]byte, error) {
	return json.Marshal(value)
}
