package httpserver

import (
	"sync/atomic"
	"time"
)

// atomicTime stores a time as unix nanoseconds.
type atomicTime struct {
	v atomic.Int64
}

func (t *atomicTime) Store(tm time.Time) { t.v.Store(tm.UnixNano()) }

func (t *atomicTime) Load() time.Time { return time.Unix(0, t.v.Load()) }
