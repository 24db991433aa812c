package batch

import "time"

// State is the lifecycle position of a single address.
type State int

// Address states. RateLimited always returns to InFlight after the backoff.
const (
	Pending State = iota
	InFlight
	Done
	Skipped
	RateLimited
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in_flight"
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Summary counts what happened during a run.
type Summary struct {
	Total            int
	Done             int
	Skipped          int
	RateLimited      int
	CacheHits        int
	RegionMismatches int
	Elapsed          time.Duration
}
