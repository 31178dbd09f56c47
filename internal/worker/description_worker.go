package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/platform/rabbitmq"
)

// DescriptionGenerator runs one description job.
type DescriptionGenerator interface {
	GenerateDescription(ctx context.Context, job model.DescriptionJob) error
}

// DescriptionWorker consumes description jobs. Each job is attempted once;
// failures are logged and the delivery is dropped without requeue.
type DescriptionWorker struct {
	conn       *amqp.Connection
	generator  DescriptionGenerator
	queueName  string
	jobTimeout time.Duration
	logger     zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDescriptionWorker(conn *amqp.Connection, generator DescriptionGenerator, queueName string, jobTimeout time.Duration, logger zerolog.Logger) *DescriptionWorker {
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &DescriptionWorker{
		conn:       conn,
		generator:  generator,
		queueName:  queueName,
		jobTimeout: jobTimeout,
		logger:     logger.With().Str("component", "description_worker").Logger(),
	}
}

func (w *DescriptionWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info().Str("queue", w.queueName).Msg("description worker started")
	return nil
}

func (w *DescriptionWorker) handle(ctx context.Context, body []byte) error {
	var job model.DescriptionJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error().Err(err).Msg("decode description job failed")
		return err
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := w.generator.GenerateDescription(jobCtx, job); err != nil {
		w.logger.Error().Err(err).
			Uint("document_id", job.DocumentID).
			Str("file_id", job.FileID).
			Msg("generate description failed")
		return err
	}
	w.logger.Info().
		Uint("document_id", job.DocumentID).
		Dur("elapsed", time.Since(start)).
		Msg("description generated")
	return nil
}

func (w *DescriptionWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
