package export

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/queue"
	"github.com/dharsanguruparan/vaultdesk/internal/signing"
)

// Enqueue plans docs for p and hands the eligible ones to the worker queue
// instead of downloading them here.
func Enqueue(ctx context.Context, client queue.Enqueuer, signer *signing.Signer, p model.Principal, docs []model.Document, logger *zap.Logger) Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	eligible, skipped := Plan(docs, p)
	now := time.Now().UTC()

	var report Report
	for _, d := range eligible {
		if err := ctx.Err(); err != nil {
			report.add(Result{Document: d, Outcome: OutcomeFailed, Err: err})
			continue
		}
		info, err := queue.EnqueueExport(ctx, client, signer, queue.ExportPayload{UserID: p.ID, Document: d, RequestedAt: now})
		if err != nil {
			logger.Warn("enqueue failed", zap.String("document_id", d.ID), zap.Error(err))
			report.add(Result{Document: d, Outcome: OutcomeFailed, Err: err})
			continue
		}
		logger.Debug("export queued", zap.String("document_id", d.ID), zap.String("task_id", info.ID))
		report.add(Result{Document: d, Outcome: OutcomeQueued})
	}
	for _, res := range skipped {
		report.add(res)
	}
	return report
}
