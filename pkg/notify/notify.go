// Package notify forwards stored events to an outside service.
package notify

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// Notifier is told about events after they are stored. Notify must not block
// and failures are not reported to the caller.
type Notifier interface {
	Notify(ev *event.T)
}

// Nop is the Notifier when no webhook is configured.
type Nop struct{}

func (Nop) Notify(*event.T) {}

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxInFlight = 16
)

// Webhook POSTs the JSON of events of the configured kinds to URL. At most
// MaxInFlight requests run at once, events arriving while all are busy are
// dropped.
type Webhook struct {
	URL    string
	Kinds  kinds.T
	Client *http.Client

	inFlight chan struct{}
	wg       sync.WaitGroup
}

func NewWebhook(url string, k kinds.T, timeout time.Duration,
	maxInFlight int) *Webhook {

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Webhook{
		URL:      url,
		Kinds:    k,
		Client:   &http.Client{Timeout: timeout},
		inFlight: make(chan struct{}, maxInFlight),
	}
}

// Wants is true for events of a kind the webhook forwards.
func (w *Webhook) Wants(ev *event.T) bool { return w.Kinds.Contains(ev.Kind) }

func (w *Webhook) Notify(ev *event.T) {
	if !w.Wants(ev) {
		return
	}
	select {
	case w.inFlight <- struct{}{}:
	default:
		log.W.Ln("webhook busy, dropping notification for", ev.ID)
		return
	}
	body := ev.Serialize()
	w.wg.Add(1)
	go func() {
		defer func() { <-w.inFlight; w.wg.Done() }()
		if err := w.post(context.Bg(), body); err != nil {
			log.W.F("webhook %s failed for %s: %s", w.URL, ev.ID, err)
		}
	}()
}

func (w *Webhook) post(c context.T, body []byte) (err error) {
	var req *http.Request
	if req, err = http.NewRequestWithContext(c, http.MethodPost, w.URL,
		bytes.NewReader(body)); chk.E(err) {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	var res *http.Response
	if res, err = w.Client.Do(req); err != nil {
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return log.D.Err("webhook answered %s", res.Status)
	}
	return
}

// Wait blocks until all notifications in flight have finished.
func (w *Webhook) Wait() { w.wg.Wait() }
