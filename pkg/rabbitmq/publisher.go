package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type publisher struct {
	conn     *amqp.Connection
	exchange string
	mu       sync.Mutex
	ch       *amqp.Channel
}

// NewPublisher declares a durable exchange of the given kind and returns a
// Publisher for it. The channel is reopened on the next publish after it has
// been closed.
func NewPublisher(ctx context.Context, conn *amqp.Connection, exchange, kind string) (Publisher, error) {
	p := &publisher{
		conn:     conn,
		exchange: exchange,
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		kind,     // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("exchange", exchange).Msg("failed to declare exchange")
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch

	return p, nil
}

func (p *publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return err
		}
		p.ch = ch
	}

	return p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
