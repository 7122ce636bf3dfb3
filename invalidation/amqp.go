package invalidation

import (
	"context"
	"sync"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	amqpInvalidationType = "invalidation"
	amqpAckType          = "ack"
)

// AMQP broadcasts invalidations over a fanout exchange. Every process consumes an exclusive
// server named queue bound to it, acks are published to the origin queue through the default exchange.
// A fanout exchange does not report its receivers, so the number of peers is configured.
type AMQP struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	publishMu  sync.Mutex
	entities   *cache.Entities
	exchange   string
	queue      string
	instanceID string
	peers      int
	ackTimeout time.Duration
	acks       *acknowledgements
	closeOnce  sync.Once
}

func NewAMQP(url, exchange string, entities *cache.Entities, peers int, ackTimeout time.Duration) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dialing amqp failed")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "opening amqp channel failed")
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "declaring invalidation exchange failed")
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "declaring invalidation queue failed")
	}
	if err := ch.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "binding invalidation queue failed")
	}
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "consuming invalidation queue failed")
	}

	a := &AMQP{
		conn:       conn,
		ch:         ch,
		entities:   entities,
		exchange:   exchange,
		queue:      queue.Name,
		instanceID: uuid.NewString(),
		peers:      peers,
		ackTimeout: ackTimeout,
		acks:       newAcknowledgements(),
	}
	go a.listen(deliveries)

	cache.GetLogger().WithField("module", "invalidation").Infof(
		"listening for invalidations on amqp exchange %s as %s, expecting %d peers", exchange, a.instanceID, peers)
	return a, nil
}

func (a *AMQP) Invalidate(ctx context.Context, kind cache.Kind, id string) error {
	a.entities.Delete(kind, id)

	message := Message{
		Nonce:  uuid.NewString(),
		Origin: a.instanceID,
		Kind:   string(kind),
		ID:     id,
	}
	payload, err := Encode(message)
	if err != nil {
		return errors.Wrap(err, "encoding invalidation failed")
	}

	acks := a.acks.expect(message.Nonce)
	defer a.acks.forget(message.Nonce)

	err = a.publish(ctx, a.exchange, "", amqp.Publishing{
		ContentType:   "application/msgpack",
		Type:          amqpInvalidationType,
		Body:          payload,
		MessageId:     message.Nonce,
		CorrelationId: message.Nonce,
		ReplyTo:       a.queue,
		Timestamp:     time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "publishing invalidation failed")
	}
	metrics.InvalidationsSent.WithLabelValues("amqp").Inc()

	err = wait(ctx, acks, a.peers, a.ackTimeout)
	if errors.Cause(err) == ErrAckTimeout {
		metrics.InvalidationAckTimeouts.WithLabelValues("amqp").Inc()
	}
	return err
}

func (a *AMQP) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.ch.Close()
		err = a.conn.Close()
	})
	return err
}

func (a *AMQP) publish(ctx context.Context, exchange, key string, publishing amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
	}

	a.publishMu.Lock()
	defer a.publishMu.Unlock()
	return a.ch.PublishWithContext(ctx, exchange, key, false, false, publishing)
}

func (a *AMQP) listen(deliveries <-chan amqp.Delivery) {
	log := cache.GetLogger().WithField("module", "invalidation")

	for delivery := range deliveries {
		if delivery.Type == amqpAckType {
			a.acks.receive(delivery.CorrelationId)
			continue
		}

		message, err := Decode(delivery.Body)
		if err != nil {
			log.Warnf("dropping malformed invalidation: %s", err.Error())
			continue
		}
		if message.Origin == a.instanceID {
			continue
		}

		apply(a.entities, message)
		metrics.InvalidationsReceived.WithLabelValues("amqp").Inc()

		if delivery.ReplyTo == "" {
			continue
		}
		err = a.publish(context.Background(), "", delivery.ReplyTo, amqp.Publishing{
			Type:          amqpAckType,
			CorrelationId: message.Nonce,
			Timestamp:     time.Now(),
		})
		if err != nil {
			log.Warnf("acknowledging invalidation %s of %s failed: %s", message.Nonce, message.Origin, err.Error())
		}
	}
}
