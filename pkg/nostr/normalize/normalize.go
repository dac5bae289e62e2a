package normalize

import (
	"fmt"
	"net/url"
	"strings"
)

// Machine readable prefixes of OK and CLOSED messages.
const (
	Invalid    = "invalid"
	Restricted = "restricted"
	Duplicate  = "duplicate"
	Blocked    = "blocked"
	RateLimit  = "rate-limited"
	Error      = "error"
)

// Reason formats a message with a machine readable prefix, leaving messages
// that already carry the prefix alone.
func Reason(msg, prefix string) string {
	if strings.HasPrefix(msg, prefix+":") {
		return msg
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// URL normalizes the url and replaces http://, https:// schemes by
// ws://, wss://.
func URL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.TrimSpace(u)
	u = strings.ToLower(u)
	// if prefix isn't specified as http/s or websocket, assume secure
	// websocket and add wss prefix (this is the most common).
	if !(strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "ws://") ||
		strings.HasPrefix(u, "wss://")) {
		u = "wss://" + u
	}
	var e error
	var p *url.URL
	p, e = url.Parse(u)
	if e != nil {
		return ""
	}
	// convert http/s to ws/s
	switch p.Scheme {
	case "https":
		p.Scheme = "wss"
	case "http":
		p.Scheme = "ws"
	}
	// remove trailing path slash
	p.Path = strings.TrimRight(p.Path, "/")
	return p.String()
}
