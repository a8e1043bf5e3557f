package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/spektr-org/spektr-retail/artifact"
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// AMQP DELIVERER — publish a report event to a RabbitMQ exchange
// ============================================================================
// The target is the routing key. Consumers receive the full artifact,
// body included, as JSON.
// ============================================================================

const amqpService = "amqp"

// Publisher is the subset of *amqp.Channel used for delivery.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDeliverer publishes artifacts to an exchange.
type AMQPDeliverer struct {
	pub      Publisher
	exchange string
	conn     *amqp.Connection
}

// Compile-time check.
var _ Deliverer = (*AMQPDeliverer)(nil)

// NewAMQP wraps an existing publisher.
func NewAMQP(pub Publisher, exchange string) *AMQPDeliverer {
	return &AMQPDeliverer{pub: pub, exchange: exchange}
}

// DialAMQP connects to url and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPDeliverer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &AMQPDeliverer{pub: ch, exchange: exchange, conn: conn}, nil
}

// reportEvent is the published message body.
type reportEvent struct {
	Event    string            `json:"event"`
	Artifact artifact.Artifact `json:"artifact"`
	SentAt   time.Time         `json:"sent_at"`
}

// Deliver publishes a with routing key target.
func (d *AMQPDeliverer) Deliver(ctx context.Context, a artifact.Artifact, target string) error {
	body, err := json.Marshal(reportEvent{Event: "report.ready", Artifact: a, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode report event: %w", err)
	}
	err = d.pub.PublishWithContext(ctx, d.exchange, target, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    a.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return &engine.UpstreamServiceError{Service: amqpService, Message: "publish to " + d.exchange + "/" + target, Err: err}
	}
	return nil
}

// Close closes the underlying connection, if this deliverer owns one.
func (d *AMQPDeliverer) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
