// Package localid generates identifiers for rows created offline.
//
// Entities get a timestamp-plus-random id with an "offline" prefix so a
// locally created row can never collide with a server-assigned id, and so
// the origin of an id is obvious in logs. Sync queue items use UUID v4.
package localid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	notePrefix    = "offline"
	messagePrefix = "offline_msg"
	filePrefix    = "offline_file"

	// suffixLen matches the 9-character base36 suffix of the original
	// client id scheme.
	suffixLen = 9
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var localIDRegex = regexp.MustCompile(`^offline(_msg|_file)?_\d+_[0-9a-z]{9}$`)

// NewNoteID returns a fresh local note id.
func NewNoteID() string {
	return newID(notePrefix)
}

// NewMessageID returns a fresh local message id.
func NewMessageID() string {
	return newID(messagePrefix)
}

// NewFileID returns a fresh local file id.
func NewFileID() string {
	return newID(filePrefix)
}

// NewQueueID returns a UUID v4 for a sync queue item.
func NewQueueID() string {
	return uuid.New().String()
}

// IsLocal reports whether id was generated offline (as opposed to a
// server-assigned id).
func IsLocal(id string) bool {
	return localIDRegex.MatchString(id)
}

func newID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), randSuffix())
}

func randSuffix() string {
	buf := make([]byte, suffixLen)
	max := big.NewInt(int64(len(base36)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is
			// broken; fall back to a time-derived digit.
			buf[i] = base36[time.Now().UnixNano()%36]
			continue
		}
		buf[i] = base36[n.Int64()]
	}
	return string(buf)
}
