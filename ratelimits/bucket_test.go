package ratelimits

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestDrainEmptiesBucket(t *testing.T) {
	container := NewBucketContainer(rate.Limit(0), 2)

	if !container.Drain("1") || !container.Drain("1") {
		t.Fatalf("Drain() refused a key of a full bucket")
	}
	if container.Drain("1") {
		t.Fatalf("Drain() handed out a key of an empty bucket")
	}
	if !container.Drain("2") {
		t.Fatalf("Drain() shares buckets between users")
	}
}

func TestPruneKeepsDrainedBuckets(t *testing.T) {
	container := NewBucketContainer(rate.Limit(0), 2)
	container.Drain("1")

	if pruned := container.Prune(); pruned != 0 {
		t.Fatalf("Prune() = %d, want 0 for a drained bucket", pruned)
	}
}
