package ratelimits

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// The maximum amount of keys a user may possess
	BUCKET_UPPER_BOUND = 16

	// How often new keys drip into the buckets
	DROP_INTERVAL = 2 * time.Second
)

// Global pointer to a container instance
var Container = NewBucketContainer(rate.Every(DROP_INTERVAL), BUCKET_UPPER_BOUND)

// BucketContainer holds one token bucket per discord id
type BucketContainer struct {
	sync.Mutex

	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func NewBucketContainer(limit rate.Limit, burst int) *BucketContainer {
	return &BucketContainer{
		limit:   limit,
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Drain consumes a key of the user, returns false if the bucket is empty
func (b *BucketContainer) Drain(user string) bool {
	b.Lock()
	bucket, ok := b.buckets[user]
	if !ok {
		bucket = rate.NewLimiter(b.limit, b.burst)
		b.buckets[user] = bucket
	}
	b.Unlock()

	return bucket.Allow()
}

// Prune forgets the buckets that filled up again, a forgotten user starts with a full bucket anyway
func (b *BucketContainer) Prune() int {
	b.Lock()
	defer b.Unlock()

	pruned := 0
	for user, bucket := range b.buckets {
		if bucket.Tokens() >= float64(b.burst) {
			delete(b.buckets, user)
			pruned++
		}
	}
	return pruned
}

// Refiller prunes full buckets until stop is closed
func (b *BucketContainer) Refiller(stop <-chan struct{}) {
	ticker := time.NewTicker(DROP_INTERVAL * BUCKET_UPPER_BOUND)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Prune()
		case <-stop:
			return
		}
	}
}
