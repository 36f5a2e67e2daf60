package aggregation

import (
	"sort"

	"instragg/pkg/contracts/domain"
)

// DefaultWindowSize is the bounded-window capacity W used when no explicit
// window size is configured.
const DefaultWindowSize = 10

// Bucket is the per-instrument retention policy. A bucket is exclusively
// owned by the engine and mutated only during the streaming phase.
type Bucket interface {
	// Add stores or discards the observation per the bucket's policy.
	Add(obs domain.Observation)
	// Snapshot returns a copy of the retained observations.
	Snapshot() []domain.Observation
	// Len returns the number of retained observations.
	Len() int
}

// FullHistoryBucket retains every accepted observation in arrival order.
// Memory grows linearly with input volume for the instrument.
type FullHistoryBucket struct {
	obs []domain.Observation
}

// NewFullHistoryBucket creates an empty full-history bucket.
func NewFullHistoryBucket() *FullHistoryBucket {
	return &FullHistoryBucket{}
}

func (b *FullHistoryBucket) Add(obs domain.Observation) {
	b.obs = append(b.obs, obs)
}

func (b *FullHistoryBucket) Snapshot() []domain.Observation {
	out := make([]domain.Observation, len(b.obs))
	copy(out, b.obs)
	return out
}

func (b *FullHistoryBucket) Len() int {
	return len(b.obs)
}

// BoundedWindowBucket retains at most capacity observations: always the
// most-recently-dated ones seen so far, kept sorted descending by date.
// Equal dates keep arrival order (stable sort), and a newcomer dated equal
// to the retained oldest is discarded, since replacement requires a
// strictly newer date.
type BoundedWindowBucket struct {
	capacity int
	obs      []domain.Observation
}

// NewBoundedWindowBucket creates an empty bounded bucket. A non-positive
// capacity falls back to DefaultWindowSize.
func NewBoundedWindowBucket(capacity int) *BoundedWindowBucket {
	if capacity < 1 {
		capacity = DefaultWindowSize
	}
	return &BoundedWindowBucket{
		capacity: capacity,
		obs:      make([]domain.Observation, 0, capacity),
	}
}

func (b *BoundedWindowBucket) Add(obs domain.Observation) {
	if len(b.obs) < b.capacity {
		b.obs = append(b.obs, obs)
		b.sortDescending()
		return
	}

	// Full bucket: the newcomer either displaces the current oldest or it
	// is older than everything retained and cannot be among the newest W.
	oldest := b.obs[len(b.obs)-1]
	if !obs.NewerThan(oldest) {
		return
	}
	b.obs[len(b.obs)-1] = obs
	b.sortDescending()
}

func (b *BoundedWindowBucket) Snapshot() []domain.Observation {
	out := make([]domain.Observation, len(b.obs))
	copy(out, b.obs)
	return out
}

func (b *BoundedWindowBucket) Len() int {
	return len(b.obs)
}

// Capacity returns the configured window size W.
func (b *BoundedWindowBucket) Capacity() int {
	return b.capacity
}

func (b *BoundedWindowBucket) sortDescending() {
	sort.SliceStable(b.obs, func(i, j int) bool {
		return b.obs[i].Date.After(b.obs[j].Date)
	})
}
