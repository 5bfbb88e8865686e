// Package snowflake provides a Mastodon compatible Snowflake ID generator.
package snowflake

import (
	"strconv"
	"sync/atomic"
	"time"
)

// ID is a 64 bit, time ordered identifier.
// The top 48 bits hold the creation time in milliseconds, the bottom 16 bits
// hold a sequence number.
type ID uint64

var (
	// last is the most recently issued ID.
	last atomic.Uint64
	// seq disambiguates IDs issued for times older than last.
	seq atomic.Uint32
)

// Now returns a new ID for the current time.
func Now() ID {
	return TimeToID(time.Now())
}

// TimeToID converts a time.Time to a Snowflake ID.
// IDs issued by this process are strictly increasing, so two IDs for the same
// millisecond sort in the order they were issued.
func TimeToID(ts time.Time) ID {
	// 48 bits for time in milliseconds.
	// 0 bits for worker ID.
	// 16 bits for sequence.
	candidate := uint64(ts.UnixMilli()) << 16
	for {
		prev := last.Load()
		next := candidate
		switch {
		case prev>>16 == candidate>>16:
			next = prev + 1
		case candidate < prev:
			// backdated; keep the time, not the order.
			return ID(candidate | uint64(seq.Add(1)&0xffff))
		}
		if last.CompareAndSwap(prev, next) {
			return ID(next)
		}
	}
}

// ToTime converts a Snowflake ID to a time.Time.
func (id ID) ToTime() time.Time {
	return time.UnixMilli(int64(id >> 16))
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse parses the decimal representation of an ID.
func Parse(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	return ID(n), err
}
