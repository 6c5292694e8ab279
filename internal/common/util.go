package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size is the number of random bytes, so the result is twice as long.
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// NewUIID returns a short public identifier for assets, equipment, tasks,
// entries and images. It is shown to users and used in lookups, while the
// uuid primary key never leaves the server.
func NewUIID() (string, error) {
	return MakeRandHexString(UIIDSize)
}
