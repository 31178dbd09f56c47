package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherai-docchat/internal/model"
)

// DescriptionPublisher schedules background description generation by
// publishing persistent jobs to a durable queue.
type DescriptionPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewDescriptionPublisher(conn *amqp.Connection, queueName string) *DescriptionPublisher {
	return &DescriptionPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *DescriptionPublisher) Schedule(ctx context.Context, job model.DescriptionJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	return publishJob(ctx, ch, p.queueName, job)
}

// channelPublisher is the part of *amqp.Channel used to publish jobs.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

func publishJob(ctx context.Context, ch channelPublisher, queueName string, job model.DescriptionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal description job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish description job failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable, non-exclusive queue shared by the
// publisher and the worker.
func DeclareQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return nil
}
