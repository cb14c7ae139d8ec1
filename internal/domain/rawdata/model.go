package rawdata

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Payload is an archived provider response kept for audits and replays.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	TeamID      string
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}

func HashPayload(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
