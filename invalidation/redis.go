package invalidation

import (
	"context"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/metrics"
	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Redis broadcasts invalidations over a redis pub/sub channel.
// Every process also listens on its own ack channel, receivers publish the nonce of every
// invalidation they applied to the ack channel of its origin.
type Redis struct {
	client     *redis.Client
	entities   *cache.Entities
	channel    string
	instanceID string
	ackTimeout time.Duration
	pubsub     *redis.PubSub
	acks       *acknowledgements
	done       chan struct{}
}

func NewRedis(client *redis.Client, entities *cache.Entities, channel string, ackTimeout time.Duration) (*Redis, error) {
	r := &Redis{
		client:     client,
		entities:   entities,
		channel:    channel,
		instanceID: uuid.NewString(),
		ackTimeout: ackTimeout,
		acks:       newAcknowledgements(),
		done:       make(chan struct{}),
	}

	r.pubsub = client.Subscribe(r.channel, r.ackChannel(r.instanceID))
	// wait for the subscription to be confirmed, everything published before would be lost
	if _, err := r.pubsub.Receive(); err != nil {
		r.pubsub.Close()
		return nil, errors.Wrap(err, "subscribing to invalidation channel failed")
	}

	go r.listen()

	cache.GetLogger().WithField("module", "invalidation").Infof(
		"listening for invalidations on redis channel %s as %s", r.channel, r.instanceID)
	return r, nil
}

func (r *Redis) Invalidate(ctx context.Context, kind cache.Kind, id string) error {
	r.entities.Delete(kind, id)

	message := Message{
		Nonce:  uuid.NewString(),
		Origin: r.instanceID,
		Kind:   string(kind),
		ID:     id,
	}
	payload, err := Encode(message)
	if err != nil {
		return errors.Wrap(err, "encoding invalidation failed")
	}

	acks := r.acks.expect(message.Nonce)
	defer r.acks.forget(message.Nonce)

	receivers, err := r.client.Publish(r.channel, string(payload)).Result()
	if err != nil {
		return errors.Wrap(err, "publishing invalidation failed")
	}
	metrics.InvalidationsSent.WithLabelValues("redis").Inc()

	// receivers includes this process which skips its own messages
	err = wait(ctx, acks, int(receivers)-1, r.ackTimeout)
	if errors.Cause(err) == ErrAckTimeout {
		metrics.InvalidationAckTimeouts.WithLabelValues("redis").Inc()
	}
	return err
}

func (r *Redis) Close() error {
	select {
	case <-r.done:
		return nil
	default:
		close(r.done)
	}
	return r.pubsub.Close()
}

func (r *Redis) ackChannel(instanceID string) string {
	return r.channel + ":ack:" + instanceID
}

func (r *Redis) listen() {
	log := cache.GetLogger().WithField("module", "invalidation")
	ownAckChannel := r.ackChannel(r.instanceID)

	for received := range r.pubsub.Channel() {
		if received.Channel == ownAckChannel {
			r.acks.receive(received.Payload)
			continue
		}

		message, err := Decode([]byte(received.Payload))
		if err != nil {
			log.Warnf("dropping malformed invalidation: %s", err.Error())
			continue
		}
		if message.Origin == r.instanceID {
			continue
		}

		apply(r.entities, message)
		metrics.InvalidationsReceived.WithLabelValues("redis").Inc()

		err = r.client.Publish(r.ackChannel(message.Origin), message.Nonce).Err()
		if err != nil {
			log.Warnf("acknowledging invalidation %s of %s failed: %s", message.Nonce, message.Origin, err.Error())
		}
	}
}
