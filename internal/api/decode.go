package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
)

// pinContext tells the decoder how to read a PIN-flavoured 401.
type pinContext int

const (
	pinNone     pinContext = iota // endpoint never challenges
	pinAbsent                     // challengeable request sent without a PIN
	pinSupplied                   // challengeable request sent with a PIN
	pinVerify                     // the verify-pin endpoint itself
)

// decodeError turns a non-2xx response into an *apierr.Error. The body is
// consumed but not closed.
func decodeError(resp *http.Response, pc pinContext) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	eb := parseErrorBody(body)
	msg := eb.text()
	if msg == "" {
		msg = strings.ToLower(http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		pinCase := eb.RequiresPin || eb.InvalidPin
		switch {
		case pinCase && (pc == pinVerify || pc == pinSupplied || eb.InvalidPin):
			return apierr.New(apierr.KindPinRejected, resp.StatusCode, msg)
		case pinCase:
			return apierr.New(apierr.KindPinRequired, resp.StatusCode, msg)
		default:
			// only anonymous requests get here; the transport handles the rest
			return apierr.New(apierr.KindInvalidCredentials, resp.StatusCode, msg)
		}
	}
	return apierr.New(apierr.FromStatus(resp.StatusCode), resp.StatusCode, msg)
}

// classifyTransport maps errors returned by http.Client.Do.
func classifyTransport(err error, op string) error {
	var classified *apierr.Error
	if errors.As(err, &classified) {
		return classified
	}
	err = redactURL(err)
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Wrap(err, apierr.KindTimeout, op+" timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apierr.Wrap(err, apierr.KindTimeout, op+" timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apierr.Wrap(err, apierr.KindTransport, op+" cancelled")
	}
	return apierr.Wrap(err, apierr.KindTransport, op+" failed")
}

// classifyRead maps errors from reading a response body, where an expired
// context surfaces as a plain read error.
func classifyRead(ctx context.Context, err error, op string) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return apierr.Wrap(err, apierr.KindTimeout, op+" timed out")
	}
	return classifyTransport(err, op)
}

func decodeJSON(resp *http.Response, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redactURL strips the query string, which carries the PIN on downloads, from
// the *url.Error http.Client.Do returns. Only the path is kept.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	clean := *ue
	if u, perr := url.Parse(ue.URL); perr == nil {
		clean.URL = u.Path
	} else {
		clean.URL = ""
	}
	return &clean
}
