package datastore

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ulidSource hands out data record ids that sort in creation order, also
// within one millisecond.
type ulidSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newULIDSource() *ulidSource {
	return &ulidSource{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New generates a new ULID with the given timestamp.
func (s *ulidSource) New(t time.Time) ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy)
}

// ParseRecordID parses the string form of a data record id.
func ParseRecordID(s string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: record id %q: %v", ErrInvalidDocument, s, err)
	}
	return id, nil
}
