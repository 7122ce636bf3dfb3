package helpers

import (
	"testing"
	"time"
)

func TestSnowflakesCreationTime(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	snowflakes := NewSnowflakes(3, func() time.Time { return now })

	id := snowflakes.Next()
	if !CreationTime(id).Equal(now) {
		t.Fatalf("CreationTime() = %s, want %s", CreationTime(id), now)
	}
}

func TestSnowflakesIncreaseWithinMillisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	snowflakes := NewSnowflakes(1, func() time.Time { return now })

	last := snowflakes.Next()
	for i := 0; i < 5000; i++ {
		id := snowflakes.Next()
		if id <= last {
			t.Fatalf("Snowflakes.Next() = %d after %d, want increasing ids", id, last)
		}
		last = id
	}
}
