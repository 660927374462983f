// Package identifier generates entity ids and API tokens.
//
// Ids are ULIDs: lexicographic order matches creation order, which the
// activity feed relies on for stable pagination.
package identifier

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewToken returns an opaque 64-hex-char bearer token for teams and users.
func NewToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("identifier: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
