// Package reproducible pins the timestamps that go in to build artifacts, so
// that building the same release twice produces byte-identical files.
package reproducible

import (
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	nowOnce sync.Once
	now     time.Time
)

// Now returns the time from SOURCE_DATE_EPOCH if it is set, or the wall-clock
// time of the first call otherwise.  The value is fixed for the life of the
// process.
func Now() time.Time {
	nowOnce.Do(func() {
		secs, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64)
		if err == nil {
			now = time.Unix(secs, 0).UTC()
		} else {
			now = time.Now()
		}
	})
	return now
}

// Clamp returns t, limited to be no later than Now().
func Clamp(t time.Time) time.Time {
	if limit := Now(); t.After(limit) {
		return limit
	}
	return t
}
