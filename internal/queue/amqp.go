package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes lifecycle events to RabbitMQ, one durable queue
// per event name. Publish hands the event to a buffered channel and
// returns immediately; a background goroutine drains it, so the booking
// path never waits on the broker. A full buffer drops the event with a
// warning rather than blocking.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	events  chan Event
	done    chan struct{}
	log     *zap.Logger
}

func NewAMQPPublisher(url string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Declare every lifecycle queue up front (idempotent, durable).
	names := []string{
		EventSeatHeld,
		EventSeatReleased,
		EventBookingConfirmed,
		EventBookingExpired,
		EventWaitlistPromoted,
	}
	for _, name := range names {
		if _, err := channel.QueueDeclare(
			name,  // name
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			channel.Close()
			conn.Close()
			return nil, err
		}
	}

	p := &AMQPPublisher{
		conn:    conn,
		channel: channel,
		events:  make(chan Event, 256),
		done:    make(chan struct{}),
		log:     log.With(zap.String("component", "event_publisher")),
	}

	go p.drain()

	return p, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) {
	select {
	case p.events <- event:
	default:
		p.log.Warn("Event buffer full, dropping lifecycle event",
			zap.String("event", event.Name),
			zap.String("booking_id", event.BookingID.String()),
		)
	}
}

func (p *AMQPPublisher) drain() {
	for event := range p.events {
		body, err := json.Marshal(event)
		if err != nil {
			p.log.Error("Failed to marshal lifecycle event", zap.Error(err))
			continue
		}

		pub := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = p.channel.PublishWithContext(ctx,
			"",         // default exchange
			event.Name, // routing key = queue name
			false,      // mandatory
			false,      // immediate
			pub,
		)
		cancel()
		if err != nil {
			p.log.Warn("Failed to publish lifecycle event",
				zap.Error(err),
				zap.String("event", event.Name),
			)
		}
	}
	close(p.done)
}

func (p *AMQPPublisher) Close() error {
	close(p.events)
	<-p.done
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
