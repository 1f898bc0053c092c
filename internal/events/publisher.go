package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/streadway/amqp"
)

const queueName = "sequence_events"

// DeliveryEvent is published after a scheduled message reaches a terminal
// delivery state, for downstream analytics consumers.
type DeliveryEvent struct {
	MessageID    int       `json:"message_id"`
	WorkspaceID  int       `json:"workspace_id"`
	SequenceID   int       `json:"sequence_id"`
	StepID       int       `json:"step_id"`
	RecipientID  int       `json:"recipient_id"`
	Channel      string    `json:"channel"`
	Status       string    `json:"status"`
	ExternalID   string    `json:"external_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher fans delivery events out to RabbitMQ. The broker is not the job
// queue here, only an event firehose, so publish failures are logged and
// dropped rather than failing the delivery they describe.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher connects and declares the durable event queue.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("[EVENTS] Connected to broker, queue %q declared", queueName)
	return &Publisher{conn: conn, channel: ch}, nil
}

// PublishDelivery sends one event. Best effort.
func (p *Publisher) PublishDelivery(evt DeliveryEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	err = p.channel.Publish(
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		log.Println("[EVENTS] Failed to publish delivery event:", err)
	}
	return err
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
