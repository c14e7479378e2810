package adapter

import "time"

// Clock abstracts "now" so time-based guards are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
