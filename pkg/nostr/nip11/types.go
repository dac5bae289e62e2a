// Package nip11 is the relay information document served to clients that ask
// for application/nostr+json.
package nip11

import (
	"encoding/json"
	"os"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

type Limits struct {
	MaxMessageLength int  `json:"max_message_length,omitempty"`
	MaxSubscriptions int  `json:"max_subscriptions,omitempty"`
	MaxFilters       int  `json:"max_filters,omitempty"`
	MaxLimit         int  `json:"max_limit,omitempty"`
	MaxSubidLength   int  `json:"max_subid_length,omitempty"`
	MaxEventTags     int  `json:"max_event_tags,omitempty"`
	MaxContentLength int  `json:"max_content_length,omitempty"`
	MinPowDifficulty int  `json:"min_pow_difficulty,omitempty"`
	AuthRequired     bool `json:"auth_required"`
	PaymentRequired  bool `json:"payment_required"`
	RestrictedWrites bool `json:"restricted_writes"`
}

type Retention struct {
	Kinds []int `json:"kinds,omitempty"`
	Time  int64 `json:"time,omitempty"`
}

type Info struct {
	mx             sync.Mutex
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	PubKey         string      `json:"pubkey"`
	Contact        string      `json:"contact"`
	SupportedNIPs  []int       `json:"supported_nips"`
	Software       string      `json:"software"`
	Version        string      `json:"version"`
	Limitation     *Limits     `json:"limitation,omitempty"`
	Retention      []Retention `json:"retention,omitempty"`
	RelayCountries []string    `json:"relay_countries,omitempty"`
	LanguageTags   []string    `json:"language_tags,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	PostingPolicy  string      `json:"posting_policy,omitempty"`
	Icon           string      `json:"icon"`
}

func NewInfo(inf *Info) *Info {
	if inf == nil {
		inf = &Info{}
	}
	if inf.Limitation == nil {
		inf.Limitation = &Limits{}
	}
	return inf
}

// AddNIPs adds to the supported NIPs, keeping them sorted and unique.
func (inf *Info) AddNIPs(n ...int) {
	inf.mx.Lock()
	defer inf.mx.Unlock()
	for _, number := range n {
		if idx, found := slices.BinarySearch(inf.SupportedNIPs, number); !found {
			inf.SupportedNIPs = slices.Insert(inf.SupportedNIPs, idx, number)
		}
	}
}

func (inf *Info) HasNIP(n int) (ok bool) {
	inf.mx.Lock()
	_, ok = slices.BinarySearch(inf.SupportedNIPs, n)
	inf.mx.Unlock()
	return
}

// Bytes is the JSON document.
func (inf *Info) Bytes() (b []byte, err error) {
	inf.mx.Lock()
	defer inf.mx.Unlock()
	return json.Marshal(inf)
}

// Save writes the document to a file so an operator can edit it.
func (inf *Info) Save(filename string) (err error) {
	var b []byte
	inf.mx.Lock()
	b, err = json.MarshalIndent(inf, "", "    ")
	inf.mx.Unlock()
	if chk.E(err) {
		return
	}
	if err = os.WriteFile(filename, b, 0600); chk.E(err) {
		return
	}
	return
}

// Load reads a document written by Save.
func (inf *Info) Load(filename string) (err error) {
	var b []byte
	if b, err = os.ReadFile(filename); err != nil {
		return
	}
	inf.mx.Lock()
	defer inf.mx.Unlock()
	if err = json.Unmarshal(b, inf); chk.E(err) {
		return
	}
	log.D.F("loaded relay information from %s", filename)
	return
}
