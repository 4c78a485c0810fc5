// Package worker runs queued export tasks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/export"
	"github.com/dharsanguruparan/vaultdesk/internal/queue"
	"github.com/dharsanguruparan/vaultdesk/internal/signing"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	exporter *export.Exporter
	signer   *signing.Signer
	logger   *zap.Logger
	now      func() time.Time
}

// NewProcessor constructs a worker processor.
func NewProcessor(exporter *export.Exporter, signer *signing.Signer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{exporter: exporter, signer: signer, logger: logger, now: time.Now}
}

// Handler registers the export job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExportDocumentTask, p.HandleExport)
	return mux
}

// HandleExport verifies the task signature and exports one document. Tasks
// are never retried: every failure is wrapped with asynq.SkipRetry.
func (p *Processor) HandleExport(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeExport(p.signer, task, p.now())
	if err != nil {
		p.logger.Warn("rejected export task", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	log := p.logger.With(zap.String("document_id", payload.Document.ID), zap.String("user_id", payload.UserID))

	res := p.exporter.ExportOne(ctx, payload.UserID, payload.Document)
	switch res.Outcome {
	case export.OutcomeSaved:
		log.Info("document exported", zap.String("location", res.Location), zap.Int64("bytes", res.Bytes))
		return nil
	case export.OutcomeSkipped:
		log.Info("document skipped", zap.String("reason", res.Reason))
		return nil
	default:
		err := res.Err
		if err == nil {
			err = errors.New("export failed")
		}
		log.Error("export failed", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
}
