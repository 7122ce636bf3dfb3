package helpers

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	snowflakeSequenceBits = 12
	snowflakeWorkerBits   = 10
	snowflakeSequenceMask = 1<<snowflakeSequenceBits - 1
	snowflakeWorkerMask   = 1<<snowflakeWorkerBits - 1
)

// Snowflakes generates discord layout snowflakes: milliseconds since the discord epoch,
// the shard as worker id and a per millisecond sequence.
// Ids of one generator are strictly increasing.
type Snowflakes struct {
	mutex    sync.Mutex
	worker   uint64
	now      func() time.Time
	lastMs   int64
	sequence uint64
}

func NewSnowflakes(worker int, now func() time.Time) *Snowflakes {
	if now == nil {
		now = time.Now
	}
	return &Snowflakes{
		worker: uint64(worker) & snowflakeWorkerMask,
		now:    now,
	}
}

func (s *Snowflakes) Next() snowflake.ID {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.lastMs {
		// clock did not move or went backwards, stay on the last millisecond
		ms = s.lastMs
		s.sequence = (s.sequence + 1) & snowflakeSequenceMask
		if s.sequence == 0 {
			ms++
		}
	} else {
		s.sequence = 0
	}
	s.lastMs = ms

	base := snowflake.New(time.UnixMilli(ms))
	return base | snowflake.ID(s.worker<<snowflakeSequenceBits|s.sequence)
}

// CreationTime recovers the creation time of a snowflake
func CreationTime(id snowflake.ID) time.Time {
	return id.Time()
}
