package app

import (
	"sync"
	"sync/atomic"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filters"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

// Conn is the transport of a session: it writes one message at a time.
type Conn interface {
	Write(b []byte) error
	Close() error
}

// State is the liveness of a session.
type State int32

const (
	Active State = iota
	Closing
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "closing"
}

// Session is one client connection. Messages for it are queued and written by
// its own goroutine so a slow client only ever holds up itself.
type Session struct {
	ID     string
	Remote string
	conn   Conn
	// subs is the subscriptions of the session, only used under the actor
	// lock.
	subs  map[subscriptionid.T]filters.T
	state atomic.Int32
	// the outbound queue
	mx       sync.Mutex
	cond     *sync.Cond
	queue    [][]byte
	queued   int
	maxQueue int
	closed   chan struct{}
	once     sync.Once
}

func newSession(id, remote string, conn Conn, maxQueue int) (s *Session) {
	s = &Session{
		ID:       id,
		Remote:   remote,
		conn:     conn,
		subs:     make(map[subscriptionid.T]filters.T),
		maxQueue: maxQueue,
		closed:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mx)
	return
}

func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed when the session starts closing.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Send queues an envelope for writing. It returns false if the session is
// closing or the message was dropped because the queue is full, in which
// case the session is closed as well.
func (s *Session) Send(env enveloper.I) (ok bool) {
	b := env.Bytes()
	s.mx.Lock()
	if s.State() != Active {
		s.mx.Unlock()
		return
	}
	if s.maxQueue > 0 && s.queued+len(b) > s.maxQueue {
		s.mx.Unlock()
		log.W.F("closing session %s %s: more than %d bytes waiting to be sent",
			s.ID, s.Remote, s.maxQueue)
		s.shutdown()
		return
	}
	s.queue = append(s.queue, b)
	s.queued += len(b)
	s.cond.Signal()
	s.mx.Unlock()
	return true
}

// writer drains the queue into the connection until the session closes.
func (s *Session) writer() {
	for {
		s.mx.Lock()
		for len(s.queue) == 0 && s.State() == Active {
			s.cond.Wait()
		}
		if s.State() != Active {
			s.mx.Unlock()
			return
		}
		b := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.queued -= len(b)
		s.mx.Unlock()
		if err := s.conn.Write(b); err != nil {
			log.D.F("write to %s failed: %v", s.Remote, err)
			s.shutdown()
			return
		}
	}
}

// shutdown marks the session closing, drops whatever is queued and closes the
// connection. It is safe to call more than once.
func (s *Session) shutdown() {
	s.once.Do(func() {
		s.mx.Lock()
		s.state.Store(int32(Closing))
		s.queue, s.queued = nil, 0
		s.cond.Broadcast()
		s.mx.Unlock()
		close(s.closed)
		chk.D(s.conn.Close())
	})
}
