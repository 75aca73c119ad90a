package cache

// Outcome tags how a cache lookup produced its value.
type Outcome string

const (
	OutcomeHit      Outcome = "hit"      // fresh entry served from memory
	OutcomeLoaded   Outcome = "loaded"   // loader produced a fresh value
	OutcomeFallback Outcome = "fallback" // loader failed, fallback value stored
	OutcomeStale    Outcome = "stale"    // expired entry served without loading
	OutcomeMiss     Outcome = "miss"     // nothing stored, nothing loaded
)

func (o Outcome) String() string {
	return string(o)
}

// Result is the explicit outcome of a lookup. Value is usable unless Outcome is OutcomeMiss;
// Err carries the loader failure when Outcome is OutcomeFallback.
type Result[V any] struct {
	Value   V
	Outcome Outcome
	Err     error
}

// IsFallback reports whether the value is the configured fallback.
func (r Result[V]) IsFallback() bool {
	return r.Outcome == OutcomeFallback
}

// IsMiss reports whether the lookup found nothing.
func (r Result[V]) IsMiss() bool {
	return r.Outcome == OutcomeMiss
}
