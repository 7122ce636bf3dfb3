// Package invalidation fans cache deletes out to every shard process.
// Values are never propagated, a process that received an invalidation refetches on next access.
package invalidation

import (
	"context"
	"sync"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

var (
	// ErrAckTimeout is returned when not every process acknowledged an invalidation in time
	ErrAckTimeout = errors.New("invalidation was not acknowledged by every process")
)

// Broadcaster deletes an entity from the cache of every live process, including the calling one,
// and returns once all of them acknowledged it
type Broadcaster interface {
	Invalidate(ctx context.Context, kind cache.Kind, id string) error
	Close() error
}

// Message is the wire format of an invalidation
type Message struct {
	Nonce  string `msgpack:"n"`
	Origin string `msgpack:"o"`
	Kind   string `msgpack:"k"`
	ID     string `msgpack:"i"`
}

func Encode(message Message) ([]byte, error) {
	return msgpack.Marshal(message)
}

func Decode(payload []byte) (message Message, err error) {
	err = msgpack.Unmarshal(payload, &message)
	if err == nil && (message.Kind == "" || message.ID == "") {
		err = errors.New("invalidation message without kind or id")
	}
	return message, err
}

// acknowledgements tracks the acks a process is waiting for, keyed by nonce
type acknowledgements struct {
	sync.Mutex
	waiting map[string]chan struct{}
}

func newAcknowledgements() *acknowledgements {
	return &acknowledgements{
		waiting: make(map[string]chan struct{}),
	}
}

func (a *acknowledgements) expect(nonce string) <-chan struct{} {
	a.Lock()
	defer a.Unlock()

	acks := make(chan struct{}, 64)
	a.waiting[nonce] = acks
	return acks
}

func (a *acknowledgements) forget(nonce string) {
	a.Lock()
	delete(a.waiting, nonce)
	a.Unlock()
}

func (a *acknowledgements) receive(nonce string) {
	a.Lock()
	defer a.Unlock()

	acks, ok := a.waiting[nonce]
	if !ok {
		return
	}
	select {
	case acks <- struct{}{}:
	default:
	}
}

// wait blocks until expected acks arrived, the timeout passed or ctx is done
func wait(ctx context.Context, acks <-chan struct{}, expected int, timeout time.Duration) error {
	if expected <= 0 {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	received := 0
	for received < expected {
		select {
		case <-acks:
			received++
		case <-timer.C:
			return errors.Wrapf(ErrAckTimeout, "%d of %d acknowledged", received, expected)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// apply runs a received invalidation against the local cache
func apply(entities *cache.Entities, message Message) {
	entities.Delete(cache.Kind(message.Kind), message.ID)
}
