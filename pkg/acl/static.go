package acl

import (
	"sync"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

type Role int

// ACL roles
const (
	// Owner is the role of the relay operator, which can not be removed.
	Owner Role = iota
	// Writer is a user who has the right to add events to the relay.
	Writer
	// Denied is a blacklisted user who may not add events even when another
	// checker would allow them.
	Denied
)

// RoleStrings are the human readable form of the role enums.
var RoleStrings = []string{
	"owner",
	"writer",
	"denied",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(RoleStrings) {
		return "unknown"
	}
	return RoleStrings[r]
}

// Entry is the role of one pubkey.
type Entry struct {
	Role   Role
	Pubkey string
	// Created is when the entry was first added.
	Created timestamp.T
	// Expires is the unix timestamp after which this entry is no longer in
	// force, zero for never.
	Expires timestamp.T
}

func (e *Entry) expired(now timestamp.T) bool {
	return e.Expires != 0 && now >= e.Expires
}

// Static is a list of pubkeys with a role each, from configuration.
type Static struct {
	sync.Mutex
	entries map[string]*Entry
}

// NewStatic makes a Static with the given pubkeys as writers and the owner,
// if not empty, as owner.
func NewStatic(owner string, writers ...string) (s *Static, err error) {
	s = &Static{entries: make(map[string]*Entry)}
	if owner != "" {
		if err = s.AddEntry(&Entry{Role: Owner, Pubkey: owner}); chk.E(err) {
			return
		}
	}
	for _, pk := range writers {
		if err = s.AddEntry(&Entry{Role: Writer, Pubkey: pk}); chk.E(err) {
			return
		}
	}
	return
}

// AddEntry adds or replaces the entry for a pubkey. The owner entry can not be
// replaced.
func (s *Static) AddEntry(entry *Entry) (err error) {
	if entry == nil {
		return log.E.Err("nil entry for ACL")
	}
	if !event.IsLowerHex(entry.Pubkey, event.PubKeyLen) {
		return log.E.Err("invalid pubkey in ACL entry: %q", entry.Pubkey)
	}
	s.Lock()
	defer s.Unlock()
	if v, ok := s.entries[entry.Pubkey]; ok {
		if v.Role == Owner {
			return log.E.Err("owner entries cannot be modified, only " +
				"possible to change in configuration")
		}
		entry.Created = v.Created
		log.D.F("replacing entry for key '%s' role '%s'", entry.Pubkey,
			entry.Role)
	} else if entry.Created == 0 {
		entry.Created = timestamp.Now()
	}
	s.entries[entry.Pubkey] = entry
	return
}

// DeleteEntry removes the entry of a pubkey. It is not possible to delete the
// owner.
func (s *Static) DeleteEntry(pub string) (err error) {
	s.Lock()
	defer s.Unlock()
	e, ok := s.entries[pub]
	if !ok {
		return log.D.Err("cannot delete: pubkey not found %s", pub)
	}
	if e.Role == Owner {
		return log.E.Err("owner roles are not modifiable")
	}
	delete(s.entries, pub)
	return
}

// Find the Entry that has the matching public key.
func (s *Static) Find(pub string) (e *Entry) {
	s.Lock()
	defer s.Unlock()
	return s.entries[pub]
}

// Len is the number of entries.
func (s *Static) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.entries)
}

// IsAllowed is true for the owner and writers that have not expired.
func (s *Static) IsAllowed(c context.T, pubkey string) (bool, error) {
	e := s.Find(pubkey)
	if e == nil || e.expired(timestamp.Now()) {
		return false, nil
	}
	return e.Role == Owner || e.Role == Writer, nil
}

// Guard puts the denied entries of a Static in front of another checker: a
// denied pubkey is refused whatever the other checker says.
type Guard struct {
	List *Static
	Next Checker
}

func (g Guard) IsAllowed(c context.T, pubkey string) (bool, error) {
	if e := g.List.Find(pubkey); e != nil && e.Role == Denied &&
		!e.expired(timestamp.Now()) {
		return false, nil
	}
	return g.Next.IsAllowed(c, pubkey)
}
