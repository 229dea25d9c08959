package ws

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ConnInfo carries per-connection identity and tracing context. Name is
// the display name supplied by the client at connect time; it is trusted
// as-is, identity verification is out of scope.
type ConnInfo struct {
	ConnID      string
	Name        string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
