package queue

import (
	"github.com/slidescribe/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a message goes through the retry queue before it is
// dead lettered.
const MaxRetries = 10

const retriesHeader = "x-retries"

// RetryCount returns the x-retries header of a delivery.
func RetryCount(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// HandleProcessingError routes a failed delivery. Permanent errors and
// messages that used up their retries go to <queue>_dlq and a final error
// event is published for the job; everything else goes to <queue>_retry with
// an incremented retry count. The original delivery is acked once the
// message has been republished.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string, cause error) {
	retries := RetryCount(msg.Headers)

	if IsPermanent(cause) || retries >= MaxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType: msg.ContentType,
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)

		if jobID := JobIDFromMessage(msg.Body); jobID != "" {
			if err := PublishEvent(ch, Event{Type: EventError, JobID: jobID, Error: cause.Error()}); err != nil {
				logger.Error("[Queue] Failed to publish error event", "job_id", jobID, "err", err)
			}
		}
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retriesHeader] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
