// Package queue defines the export task carried over Redis by asynq.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/signing"
)

const (
	// ExportDocumentTask is scheduled once per exportable document.
	ExportDocumentTask = "document:export"
	// QueueName isolates export tasks from anything else on the Redis instance.
	QueueName = "vaultdesk-export"
	// MaxPayloadAge bounds how long a sealed task stays acceptable.
	MaxPayloadAge = 24 * time.Hour
)

// ExportPayload is sealed into the task so the worker knows what to fetch
// and on whose behalf.
type ExportPayload struct {
	UserID      string         `json:"userId"`
	Document    model.Document `json:"document"`
	RequestedAt time.Time      `json:"requestedAt"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewExportTask seals payload into an asynq task.
func NewExportTask(signer *signing.Signer, payload ExportPayload, now time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	sealed, err := signer.Seal(data, now)
	if err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}
	return asynq.NewTask(ExportDocumentTask, sealed), nil
}

// EnqueueExport enqueues an export job. Downloads are never retried, so the
// task runs at most once.
func EnqueueExport(ctx context.Context, client Enqueuer, signer *signing.Signer, payload ExportPayload) (*asynq.TaskInfo, error) {
	task, err := NewExportTask(signer, payload, time.Now())
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Queue(QueueName))
	if err != nil {
		return nil, fmt.Errorf("enqueue export task: %w", err)
	}
	return info, nil
}

// DecodeExport verifies and decodes a task payload.
func DecodeExport(signer *signing.Signer, task *asynq.Task, now time.Time) (ExportPayload, error) {
	data, err := signer.Open(task.Payload(), now, MaxPayloadAge)
	if err != nil {
		return ExportPayload{}, fmt.Errorf("open payload: %w", err)
	}
	var payload ExportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ExportPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// RedisOpt builds the asynq connection options.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}
