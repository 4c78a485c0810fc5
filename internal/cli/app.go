// Package cli implements the vaultdesk commands on top of cobra.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/access"
	"github.com/dharsanguruparan/vaultdesk/internal/account"
	"github.com/dharsanguruparan/vaultdesk/internal/api"
	"github.com/dharsanguruparan/vaultdesk/internal/config"
	"github.com/dharsanguruparan/vaultdesk/internal/credentials"
	"github.com/dharsanguruparan/vaultdesk/internal/journal"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/preview"
	"github.com/dharsanguruparan/vaultdesk/internal/save"
	"github.com/dharsanguruparan/vaultdesk/internal/upload"
	"github.com/dharsanguruparan/vaultdesk/internal/validation"
)

// App holds everything the commands share for one invocation.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store    credentials.Store
	client   *api.Client
	ctrl     *access.Controller
	accounts *account.Service
	uploads  *upload.Service
	previews *preview.Renderer
	journal  journal.Journal
	local    *save.LocalSink

	closeJournal func()

	in  *bufio.Reader
	out io.Writer
}

// Option customizes an App.
type Option func(*App)

// WithStore replaces the credentials file with another store.
func WithStore(s credentials.Store) Option {
	return func(a *App) { a.store = s }
}

// WithJournal replaces the journal selected by DATABASE_URL.
func WithJournal(j journal.Journal) Option {
	return func(a *App) { a.journal = j }
}

// NewApp wires the client stack from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:          cfg,
		logger:       logger,
		in:           bufio.NewReader(in),
		out:          out,
		closeJournal: func() {},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.store == nil {
		a.store = credentials.NewFileStore(cfg.CredentialsFile)
	}

	client, err := api.New(api.Options{
		BaseURL:          cfg.APIURL,
		Tokens:           a.store,
		OnSessionExpired: func() { logger.Info("session expired, saved credentials cleared") },
		Logger:           logger.Named("api"),
		RequestTimeout:   cfg.RequestTimeout,
		DownloadTimeout:  cfg.DownloadTimeout,
		UploadTimeout:    cfg.UploadTimeout,
		PreviewTimeout:   cfg.PreviewTimeout,
	})
	if err != nil {
		return nil, err
	}
	a.client = client

	policy, err := access.ParsePinPolicy(cfg.PinCache)
	if err != nil {
		return nil, err
	}
	a.ctrl = access.NewController(client, access.WithPinPolicy(policy), access.WithLogger(logger.Named("access")))

	validate := validation.New()
	a.accounts = account.NewService(client, a.store, validate, logger.Named("account"))
	a.uploads = upload.NewService(client, validate, cfg.MaxUploadBytes, logger.Named("upload"))
	a.previews = preview.NewRenderer(client)
	a.local = save.NewLocalSink(cfg.DownloadDir)

	if a.journal == nil {
		j, closeFn, err := journal.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.journal, a.closeJournal = j, closeFn
	}
	return a, nil
}

// Close drops open PIN challenges and releases the journal connection.
func (a *App) Close() {
	for _, s := range a.ctrl.Sessions() {
		a.logger.Debug("challenge abandoned", zap.String("document_id", s.DocumentID), zap.Int("attempts", s.Attempts))
	}
	a.ctrl.CancelAll()
	a.closeJournal()
}

// principal returns the signed-in principal or a hint to log in.
func (a *App) principal() (model.Principal, error) {
	p, err := a.accounts.Principal()
	if errors.Is(err, credentials.ErrNoCredentials) {
		return model.Principal{}, errors.New("not logged in, run 'vaultdesk login' first")
	}
	return p, err
}

// sink picks where downloads go.
func (a *App) sink(ctx context.Context, toBucket bool) (save.Sink, error) {
	if !toBucket {
		return a.local, nil
	}
	if !a.cfg.S3.Enabled() {
		return nil, errors.New("bucket output needs VAULTDESK_S3_ENDPOINT")
	}
	bucket, err := save.NewBucketSink(a.cfg.S3)
	if err != nil {
		return nil, err
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return bucket, nil
}

func (a *App) record(ctx context.Context, e journal.Entry) {
	if p, err := a.accounts.Principal(); err == nil {
		e.UserID = p.ID
	}
	if _, err := a.journal.Record(ctx, e); err != nil {
		a.logger.Warn("journal record failed", zap.String("action", string(e.Action)), zap.Error(err))
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
