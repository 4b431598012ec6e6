package queue

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Subscribe binds a private, auto-deleted queue to the topic of jobID and
// returns its deliveries. Closing ch ends the subscription.
func Subscribe(ch *amqp091.Channel, jobID string) (<-chan amqp091.Delivery, error) {
	if err := declareExchange(ch); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", PubSubExchange, err)
	}

	q, err := ch.QueueDeclare(
		"",
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare subscriber queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, JobTopic(jobID), PubSubExchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind %s: %w", JobTopic(jobID), err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		true,  // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}
	return msgs, nil
}
