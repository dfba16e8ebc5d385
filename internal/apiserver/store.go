package apiserver

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// plan is a finished itinerary kept for the download link.
type plan struct {
	ID       string
	FileName string
	Text     string
	Created  time.Time
}

// planStore keeps recent plans in memory, bounded by count and age.
type planStore struct {
	cache *expirable.LRU[string, plan]
}

func newPlanStore(size int, ttl time.Duration) *planStore {
	if size < 1 {
		size = 1
	}
	return &planStore{
		cache: expirable.NewLRU[string, plan](size, nil, ttl),
	}
}

// Add stores text under a fresh ID and returns the stored plan.
func (p *planStore) Add(fileName, text string, now time.Time) plan {
	stored := plan{
		ID:       uuid.NewString(),
		FileName: fileName,
		Text:     text,
		Created:  now,
	}
	p.cache.Add(stored.ID, stored)
	return stored
}

func (p *planStore) Get(id string) (plan, bool) {
	return p.cache.Get(id)
}

func (p *planStore) Len() int {
	return p.cache.Len()
}
