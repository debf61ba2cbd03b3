package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	randomLength = 64
)

// generateToken creates a new session token: the hex encoded SHA-256 hash of
// 64 random bytes.
func generateToken() (string, error) {
	randomBytes := make([]byte, randomLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	sum := sha256.Sum256(randomBytes)
	return hex.EncodeToString(sum[:]), nil
}

// unixSeconds converts t to fractional unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
