// Package requestid generates opaque identifiers used to correlate a
// request across access logs, error responses and audit events.
package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

func New() (string, error) {
	var b [16]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
