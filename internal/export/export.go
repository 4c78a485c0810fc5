// Package export saves every document the signed-in user may download
// without a PIN. Protected and denied documents are reported, never fetched.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/access"
	"github.com/dharsanguruparan/vaultdesk/internal/journal"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/save"
)

// Outcome is what happened to one document.
type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeQueued  Outcome = "queued"
)

// Skip reasons.
const (
	ReasonNeedsPin = "pin required"
	ReasonDenied   = "access denied"
)

// Result reports one document.
type Result struct {
	Document model.Document
	Outcome  Outcome
	Location string
	Bytes    int64
	Reason   string
	Err      error
}

// Report summarizes a run in input order.
type Report struct {
	Results []Result
	Saved   int
	Skipped int
	Failed  int
	Queued  int
	Bytes   int64
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeSaved:
		r.Saved++
		r.Bytes += res.Bytes
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	case OutcomeQueued:
		r.Queued++
	}
}

// Plan splits docs into those the principal may fetch outright and skip
// results for the rest.
func Plan(docs []model.Document, p model.Principal) ([]model.Document, []Result) {
	var eligible []model.Document
	var skipped []Result
	for _, d := range docs {
		switch access.Decide(d, p) {
		case access.Allow:
			eligible = append(eligible, d)
		case access.Challenge:
			skipped = append(skipped, Result{Document: d, Outcome: OutcomeSkipped, Reason: ReasonNeedsPin})
		default:
			skipped = append(skipped, Result{Document: d, Outcome: OutcomeSkipped, Reason: ReasonDenied})
		}
	}
	return eligible, skipped
}

// Downloader is the access controller as seen by an export.
type Downloader interface {
	AttemptDownload(ctx context.Context, doc model.Document, pin string) (*model.Blob, error)
	Cancel(docID string) bool
}

// Exporter fetches and saves single documents.
type Exporter struct {
	downloader Downloader
	sink       save.Sink
	journal    journal.Journal
	logger     *zap.Logger
}

// NewExporter wires an exporter. journal and logger may be nil.
func NewExporter(d Downloader, sink save.Sink, j journal.Journal, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{downloader: d, sink: sink, journal: j, logger: logger}
}

// ExportOne downloads doc without a PIN and saves it. A server side PIN
// demand is reported as a skip and its challenge is closed again.
func (e *Exporter) ExportOne(ctx context.Context, userID string, doc model.Document) Result {
	started := time.Now()
	blob, err := e.downloader.AttemptDownload(ctx, doc, "")
	if err != nil {
		var challenge *access.ChallengeError
		if errors.As(err, &challenge) {
			if challenge.Fresh {
				e.downloader.Cancel(doc.ID)
			}
			res := Result{Document: doc, Outcome: OutcomeSkipped, Reason: ReasonNeedsPin}
			e.record(ctx, userID, res)
			return res
		}
		if errors.Is(err, access.ErrAccessDenied) {
			res := Result{Document: doc, Outcome: OutcomeSkipped, Reason: ReasonDenied}
			e.record(ctx, userID, res)
			return res
		}
		e.logger.Warn("export download failed", zap.String("document_id", doc.ID), zap.Error(err))
		return Result{Document: doc, Outcome: OutcomeFailed, Err: err}
	}

	saved, err := e.sink.Save(ctx, doc, blob)
	if err != nil {
		e.logger.Warn("export save failed", zap.String("document_id", doc.ID), zap.Error(err))
		return Result{Document: doc, Outcome: OutcomeFailed, Err: fmt.Errorf("save %s: %w", doc.OriginalName, err)}
	}
	res := Result{Document: doc, Outcome: OutcomeSaved, Location: saved.Location, Bytes: saved.Bytes}
	e.record(ctx, userID, res)
	e.logger.Debug("exported",
		zap.String("document_id", doc.ID),
		zap.String("location", saved.Location),
		zap.Int64("bytes", saved.Bytes),
		zap.Duration("latency", time.Since(started)),
	)
	return res
}

func (e *Exporter) record(ctx context.Context, userID string, res Result) {
	if e.journal == nil {
		return
	}
	entry := journal.Entry{
		UserID:     userID,
		Action:     journal.ActionExport,
		DocumentID: res.Document.ID,
		Name:       res.Document.OriginalName,
		Bytes:      res.Bytes,
		Location:   res.Location,
	}
	if res.Outcome == OutcomeSkipped {
		entry.Action = journal.ActionExportSkip
		entry.Detail = res.Reason
	}
	if _, err := e.journal.Record(ctx, entry); err != nil {
		e.logger.Warn("journal record failed", zap.String("document_id", res.Document.ID), zap.Error(err))
	}
}
