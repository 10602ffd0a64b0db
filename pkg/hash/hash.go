package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Content returns the hex sha256 of the given payload. Used to detect
// whether a resubmission actually changed anything.
func Content(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentString is a convenience wrapper over Content for string payloads.
func ContentString(data string) string {
	return Content([]byte(data))
}

// Reader hashes a stream without buffering it in memory.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
