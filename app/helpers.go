package app

import (
	"encoding/hex"
	"net"
	"net/http"
	"os"

	"github.com/sebest/xff"
	"lukechampine.com/frand"

	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

func newSessionID() string { return hex.EncodeToString(frand.Bytes(8)) }

// remoteAddr is the address of the client, from X-Forwarded-For when the
// request came through a proxy on a private network, without the port.
func remoteAddr(r *http.Request) (ip string) {
	ip = xff.GetRemoteAddr(r)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return
}

// allowedIP is true if there is no whitelist or the address is on it.
func (rl *Relay) allowedIP(ip string) bool {
	if len(rl.Whitelist) == 0 {
		return true
	}
	for i := range rl.Whitelist {
		if rl.Whitelist[i] == ip {
			return true
		}
	}
	return false
}
