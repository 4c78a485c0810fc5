package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/vaultdesk/internal/access"
	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

const pinPrompt = "PIN (empty to cancel)"

// fetch downloads doc through the controller and walks the user through a
// PIN challenge when the server asks for one. Every failure is final unless
// the user asks to retry.
func (a *App) fetch(ctx context.Context, doc model.Document, pin string) (*model.Blob, error) {
	blob, err := a.ctrl.AttemptDownload(ctx, doc, pin)
	if err == nil {
		return blob, nil
	}
	var challenge *access.ChallengeError
	switch {
	case errors.As(err, &challenge):
		a.printf("%q is protected by a PIN.\n", doc.OriginalName)
		return a.unlock(ctx, doc)
	case errors.Is(err, apierr.ErrPinRejected):
		// the PIN came with the command; keep downloading directly
		a.printf("Incorrect PIN.\n")
		return a.resubmit(ctx, doc)
	default:
		return nil, err
	}
}

// unlock verifies a PIN first and downloads only once it is accepted. It
// prompts until then or until the user enters nothing.
func (a *App) unlock(ctx context.Context, doc model.Document) (*model.Blob, error) {
	for {
		pin, err := a.promptPin(doc)
		if err != nil {
			return nil, err
		}

		err = a.ctrl.VerifyPIN(ctx, doc.ID, pin)
		if errors.Is(err, apierr.ErrPinRejected) {
			a.rejected(doc)
			continue
		}
		if err != nil {
			a.ctrl.Cancel(doc.ID)
			return nil, err
		}

		blob, err := a.downloadVerified(ctx, doc)
		if errors.Is(err, apierr.ErrPinRejected) {
			a.printf("The PIN was not accepted for the download, try again.\n")
			continue
		}
		return blob, err
	}
}

// resubmit retries the download of an open challenge with new PINs, using
// the descriptor the challenge remembered.
func (a *App) resubmit(ctx context.Context, doc model.Document) (*model.Blob, error) {
	for {
		pin, err := a.promptPin(doc)
		if err != nil {
			return nil, err
		}
		blob, err := a.ctrl.SubmitPIN(ctx, doc.ID, pin)
		var challenge *access.ChallengeError
		switch {
		case err == nil:
			return blob, nil
		case errors.Is(err, apierr.ErrPinRejected), errors.As(err, &challenge):
			a.rejected(doc)
		default:
			a.ctrl.Cancel(doc.ID)
			return nil, err
		}
	}
}

// promptPin reads a PIN. An empty answer or a failed read closes the
// challenge.
func (a *App) promptPin(doc model.Document) (string, error) {
	pin, err := GetSecret(pinPrompt, a.out)
	if err != nil {
		a.ctrl.Cancel(doc.ID)
		return "", err
	}
	if pin == "" {
		a.ctrl.Cancel(doc.ID)
		return "", errCancelled
	}
	return pin, nil
}

func (a *App) rejected(doc model.Document) {
	if s, ok := a.ctrl.Session(doc.ID); ok && s.Attempts > 0 {
		a.printf("Incorrect PIN (attempt %d), try again.\n", s.Attempts)
		return
	}
	a.printf("Incorrect PIN, try again.\n")
}

// downloadVerified repeats only the download after a verified PIN, as long as
// the user keeps asking for it.
func (a *App) downloadVerified(ctx context.Context, doc model.Document) (*model.Blob, error) {
	for {
		blob, err := a.ctrl.DownloadVerified(ctx, doc.ID)
		if err == nil {
			return blob, nil
		}
		if errors.Is(err, apierr.ErrPinRejected) {
			return nil, err
		}
		if apierr.KindOf(err).Retryable() && Confirm(a.in, fmt.Sprintf("Download failed: %v. Retry", err), a.out) {
			continue
		}
		a.ctrl.Cancel(doc.ID)
		return nil, err
	}
}
