package acl

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// DefaultCacheTTL is how long a membership answer is remembered.
const DefaultCacheTTL = 5 * time.Minute

// Membership asks an external membership service whether a pubkey may post:
//
//	GET <URL>?pubkey=<hex>
//
// A 200 response allows the pubkey unless its JSON body has "allowed": false,
// 403 and 404 deny it, anything else is an error. Answers are cached.
type Membership struct {
	URL    string
	Client *http.Client
	TTL    time.Duration
	cache  *ristretto.Cache
}

func NewMembership(u string, ttl time.Duration) (m *Membership, err error) {
	if _, err = url.Parse(u); chk.E(err) {
		return
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	m = &Membership{
		URL:    u,
		Client: &http.Client{Timeout: 10 * time.Second},
		TTL:    ttl,
	}
	if m.cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	}); chk.E(err) {
		return
	}
	return
}

func (m *Membership) IsAllowed(c context.T, pubkey string) (allowed bool,
	err error) {

	if v, ok := m.cache.Get(pubkey); ok {
		return v.(bool), nil
	}
	if allowed, err = m.ask(c, pubkey); err != nil {
		return
	}
	m.cache.SetWithTTL(pubkey, allowed, 1, m.TTL)
	return
}

func (m *Membership) ask(c context.T, pubkey string) (allowed bool,
	err error) {

	var u *url.URL
	if u, err = url.Parse(m.URL); chk.E(err) {
		return
	}
	q := u.Query()
	q.Set("pubkey", pubkey)
	u.RawQuery = q.Encode()
	var req *http.Request
	if req, err = http.NewRequestWithContext(c, http.MethodGet, u.String(),
		nil); chk.E(err) {
		return
	}
	req.Header.Set("Accept", "application/json")
	var res *http.Response
	if res, err = m.Client.Do(req); chk.E(err) {
		return
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return false, nil
	default:
		return false, log.E.Err("membership service %s answered %s", m.URL,
			res.Status)
	}
	var b []byte
	if b, err = io.ReadAll(io.LimitReader(res.Body, 1<<16)); chk.E(err) {
		return
	}
	if r := gjson.GetBytes(b, "allowed"); r.Exists() {
		return r.Bool(), nil
	}
	return true, nil
}

// Forget drops the cached answer for a pubkey.
func (m *Membership) Forget(pubkey string) { m.cache.Del(pubkey) }

// Wait blocks until cached answers are visible to IsAllowed.
func (m *Membership) Wait() { m.cache.Wait() }

func (m *Membership) Close() { m.cache.Close() }
