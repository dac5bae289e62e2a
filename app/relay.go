// Package app is the relay: the session actor that owns every connection and
// subscription, the handlers of the protocol messages and the HTTP front door
// that serves the relay information document and upgrades websockets.
package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/puzpuzpuz/xsync/v2"

	"github.com/Hubmakerlabs/relayd/pkg/acl"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/nip11"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/relayd/pkg/notify"
	"github.com/Hubmakerlabs/relayd/pkg/units"
)

var Version = "v0.1.0"
var Software = "https://github.com/Hubmakerlabs/relayd"

const (
	WriteWait           = 10 * time.Second
	PongWait            = 60 * time.Second
	PingPeriod          = 30 * time.Second
	ReadBufferSize      = 4096
	WriteBufferSize     = 4096
	MaxMessageSize  int = 128 * 1024
	MaxQueueBytes   int = 4 * units.Mb
)

// Limits are the protocol limits the actor enforces.
type Limits struct {
	// MaxSubscriptions is the number of subscriptions one connection may hold.
	MaxSubscriptions int
	// MaxFilters is the number of filters in one REQ.
	MaxFilters int
	// MaxSubIDLength is the longest accepted subscription id.
	MaxSubIDLength int
	// MaxFutureSkew is how far past now an event may be dated.
	MaxFutureSkew time.Duration
	// MaxMessageSize is the largest frame read from a client.
	MaxMessageSize int
	// MaxQueueBytes is how much may wait to be written to one connection
	// before it is closed.
	MaxQueueBytes int
	// Query holds the default and maximum filter limits.
	Query eventstore.Limits
}

func DefaultLimits() Limits {
	return Limits{
		MaxSubscriptions: 20,
		MaxFilters:       10,
		MaxSubIDLength:   subscriptionid.MaxLen,
		MaxFutureSkew:    600 * time.Second,
		MaxMessageSize:   MaxMessageSize,
		MaxQueueBytes:    MaxQueueBytes,
		Query: eventstore.Limits{
			Default: eventstore.DefaultLimit,
			Max:     eventstore.MaxLimit,
		},
	}
}

// Relay is the single actor of the relay. mx is held for the whole of the
// handling of one frame that reads or changes shared state, so an event is
// validated, stored and broadcast before any other frame is looked at.
type Relay struct {
	Ctx    context.T
	Cancel context.F
	Config *Config
	Info   *nip11.Info
	Limits Limits
	Store  eventstore.Store
	// ACL decides who may publish.
	ACL acl.Checker
	// Notifier is told about every stored event.
	Notifier notify.Notifier
	// RejectEvent are the policies applied to every verified event.
	RejectEvent []RejectEvent
	// mx is the actor lock.
	mx sync.Mutex
	// sessions is the live session table, keyed by session id.
	sessions *xsync.MapOf[string, *Session]
	// for establishing websockets
	upgrader websocket.Upgrader
	// in case you call Server.Start
	Addr       string
	serveMux   *http.ServeMux
	httpServer *http.Server
	// websocket options
	// WriteWait is the time allowed to write a message to the peer.
	WriteWait time.Duration
	// PongWait is the time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// PingPeriod is the tend pings to peer with this period. Must be less than
	// pongWait.
	PingPeriod time.Duration
	Whitelist  []string // whitelist of allowed IPs for access
	// now is the clock, replaced in tests.
	now func() time.Time
}

// NewRelay creates the actor around a store. A nil checker lets anyone
// publish and a nil notifier sends nothing.
func NewRelay(c context.T, cancel context.F, inf *nip11.Info, conf *Config,
	store eventstore.Store, checker acl.Checker,
	notifier notify.Notifier) (r *Relay) {

	if conf == nil {
		conf = &Config{}
	}
	inf = nip11.NewInfo(inf)
	if checker == nil {
		checker = acl.Open{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	r = &Relay{
		Ctx:      c,
		Cancel:   cancel,
		Config:   conf,
		Info:     inf,
		Limits:   conf.Limits(),
		Store:    store,
		ACL:      checker,
		Notifier: notifier,
		sessions: xsync.NewMapOf[*Session](),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  ReadBufferSize,
			WriteBufferSize: WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		serveMux:   &http.ServeMux{},
		WriteWait:  WriteWait,
		PongWait:   PongWait,
		PingPeriod: PingPeriod,
		Whitelist:  conf.Whitelist,
		now:        time.Now,
	}
	r.RejectEvent = append(r.RejectEvent,
		RestrictToAllowed(r.ACL),
		PreventTimestampsInTheFuture(r.Limits.MaxFutureSkew, r.clock),
	)
	r.serveMux.HandleFunc("/", r.HandleRoot)
	r.describe()
	return
}

// describe fills the relay information document with what this relay
// supports and enforces.
func (rl *Relay) describe() {
	rl.Info.Software = Software
	rl.Info.Version = Version
	rl.Info.AddNIPs(
		1,  // events, envelopes and filters
		9,  // event deletion
		11, // relay information document
	)
	l := rl.Info.Limitation
	l.MaxMessageLength = rl.Limits.MaxMessageSize
	l.MaxSubscriptions = rl.Limits.MaxSubscriptions
	l.MaxFilters = rl.Limits.MaxFilters
	l.MaxLimit = rl.Limits.Query.Max
	l.MaxSubidLength = rl.Limits.MaxSubIDLength
	if _, open := rl.ACL.(acl.Open); !open {
		l.RestrictedWrites = true
	}
	if days := rl.Config.RetentionDays; days > 0 {
		rl.Info.Retention = []nip11.Retention{
			{Time: int64(rl.Config.Retention() / time.Second)},
			{Kinds: rl.Config.Protected().ToIntSlice()},
		}
	}
}

func (rl *Relay) clock() time.Time { return rl.now() }

// Sessions is the number of live sessions.
func (rl *Relay) Sessions() int { return rl.sessions.Size() }
