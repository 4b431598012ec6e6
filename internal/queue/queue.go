package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/slidescribe/backend/internal/util"
	"github.com/slidescribe/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExtractQueue = "extract_queue"
	// PubSubExchange carries job events under the routing key job.<id>.
	PubSubExchange = "pubsub_exchange"
	// RetryDelay is how long a failed message waits in the retry queue.
	RetryDelay = 10 * time.Second
)

// Queues lists the work queues consumed by the worker.
var Queues = []string{ExtractQueue}

// Channel is the part of *amqp091.Channel used for declaring and publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Init connects to RabbitMQ using the RABBITMQ_* environment variables.
func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := util.RetryWithBackoff(context.Background(), 5, util.ExponentialBackoff(time.Second, 10*time.Second), func(ctx context.Context) (*amqp091.Connection, error) {
		return amqp091.Dial(connURL)
	})
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares the job event exchange and, for every name, the work
// queue with its dead letter and retry queues. Messages in <name>_retry are
// routed back to <name> after RetryDelay.
func SetupQueues(ch Channel, queueNames []string) error {
	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange %s: %w", PubSubExchange, err)
	}

	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(RetryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}

	return nil
}

func declareExchange(ch Channel) error {
	return ch.ExchangeDeclare(
		PubSubExchange,
		"topic",
		false, // durable
		true,  // autoDelete
		false,
		false,
		nil,
	)
}

// PublishFIFO publishes data as a persistent message to queueName.
func PublishFIFO(ch Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
}

// PublishTopic publishes data on PubSubExchange under topic.
func PublishTopic(ch Channel, topic string, data []byte) error {
	if err := declareExchange(ch); err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType: "application/json",
		Body:        data,
		Timestamp:   time.Now(),
	}

	return ch.Publish(
		PubSubExchange,
		topic,
		false,
		false,
		publishing,
	)
}
