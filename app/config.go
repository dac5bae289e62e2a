package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

type ExportCmd struct {
	ToFile string `arg:"-f,--tofile" help:"write to file instead of stdout"`
}

type ImportCmd struct {
	FromFile []string `arg:"-f,--fromfile,separate" help:"read from files instead of stdin (can use flag repeatedly for multiple files)"`
}

type PruneCmd struct {
	Days int `arg:"-d,--days" help:"prune events older than this many days instead of the configured retention"`
}

type InitCfg struct{}
type WipeCmd struct{}

// Store backends.
const (
	Badger = "badger"
	SQLite = "sqlite"
	Memory = "memory"
)

type Config struct {
	ExportCmd   *ExportCmd `arg:"subcommand:export" json:"-" help:"export database as line structured JSON"`
	ImportCmd   *ImportCmd `arg:"subcommand:import" json:"-" help:"import data from line structured JSON"`
	InitCfgCmd  *InitCfg   `arg:"subcommand:initcfg" json:"-" help:"initialize relay configuration files"`
	WipeCmd     *WipeCmd   `arg:"subcommand:wipe" json:"-" help:"empties database"`
	PruneCmd    *PruneCmd  `arg:"subcommand:prune" json:"-" help:"delete events past the retention period and exit"`
	Listen      string     `arg:"-l,--listen" default:"0.0.0.0:3334" json:"listen" help:"network address to listen on"`
	EventStore  string     `arg:"-e,--eventstore" default:"badger" json:"eventstore" help:"select event store backend [badger,sqlite,memory]"`
	Profile     string     `arg:"-p,--profile" json:"-" default:".relayd" help:"profile directory, relative to the home directory unless absolute"`
	Name        string     `arg:"-n,--name" json:"name" default:"relayd" help:"name of relay for NIP-11"`
	Description string     `arg:"-d,--description" json:"description" help:"description of relay for NIP-11"`
	Pubkey      string     `arg:"--pubkey" json:"pubkey" help:"public key of relay operator"`
	Contact     string     `arg:"-c,--contact" json:"contact,omitempty" help:"non-nostr relay operator contact details"`
	Icon        string     `arg:"-i,--icon" json:"icon" help:"icon to show on relay information pages"`
	// AllowedPubkeys restricts publishing to these pubkeys and the operator
	// pubkey. Empty means anyone may publish unless MembershipURL is set.
	AllowedPubkeys []string `arg:"-a,--allow,separate" json:"allowed_pubkeys" help:"public keys allowed to publish (can use flag repeatedly)"`
	// MembershipURL is asked whether a pubkey may publish, see acl.Membership.
	MembershipURL string `arg:"--membership" json:"membership_url" help:"URL of a membership service that decides who can publish"`
	MembershipTTL int    `arg:"--membershipttl" json:"membership_ttl" default:"300" help:"seconds to cache membership answers"`
	// Whitelist permits ONLY inbound connections from specified IP addresses.
	Whitelist []string `arg:"-w,--whitelist,separate" json:"ip_whitelist" help:"IP addresses that are only allowed to access"`
	// WebhookURL receives a POST of every stored event of WebhookKinds.
	WebhookURL     string `arg:"--webhook" json:"webhook_url" help:"URL to POST new events of the webhook kinds to"`
	WebhookKinds   []int  `arg:"--webhookkind,separate" json:"webhook_kinds" help:"kinds sent to the webhook (can use flag repeatedly)"`
	WebhookTimeout int    `arg:"--webhooktimeout" json:"webhook_timeout" default:"5" help:"seconds to wait for the webhook to answer"`
	// limits
	MaxSubscriptions int `arg:"--maxsubs" json:"max_subscriptions" default:"20" help:"maximum subscriptions per connection"`
	MaxFilters       int `arg:"--maxfilters" json:"max_filters" default:"10" help:"maximum filters per subscription"`
	MaxLimit         int `arg:"--maxlimit" json:"max_limit" default:"500" help:"maximum number of events returned for one filter"`
	DefaultLimit     int `arg:"--defaultlimit" json:"default_limit" default:"100" help:"number of events returned for a filter without a limit"`
	MaxSubIDLength   int `arg:"--maxsubid" json:"max_subid_length" default:"64" help:"maximum length of a subscription id"`
	MaxFutureSkew    int `arg:"--futureskew" json:"max_future_skew" default:"600" help:"seconds an event may be dated in the future"`
	MaxMessageSize   int `arg:"--maxmessage" json:"max_message_size" default:"131072" help:"maximum size of a received message in bytes"`
	MaxQueueBytes    int `arg:"--maxqueue" json:"max_queue_bytes" default:"4194304" help:"outbound bytes queued for a connection before it is dropped"`
	// retention
	RetentionDays  int    `arg:"-r,--retention" json:"retention_days" default:"90" help:"days to keep events of kinds that are not protected, 0 to keep forever"`
	ProtectedKinds []int  `arg:"--protect,separate" json:"protected_kinds" help:"kinds never pruned (default 0, 3, 10002, 34550)"`
	PruneInterval  int    `arg:"--pruneinterval" json:"prune_interval" default:"60" help:"minutes between retention pruning runs"`
	MaxProcs       int    `arg:"-m" json:"max_procs" default:"128" help:"maximum number of goroutines to use"`
	LogLevel       string `arg:"--loglevel" default:"info" json:"-" help:"set log level [off,fatal,error,warn,info,debug,trace] (can also use GODEBUG environment variable)"`
}

// DefaultProtectedKinds are never pruned: profiles, follow lists, relay lists
// and community definitions.
var DefaultProtectedKinds = kinds.T{0, 3, 10002, 34550}

func (c *Config) Save(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot save nil relay config")
		log.E.Ln(err)
		return
	}
	var b []byte
	if b, err = json.MarshalIndent(c, "", "    "); chk.E(err) {
		return
	}
	if err = os.MkdirAll(filepath.Dir(filename), 0700); chk.E(err) {
		return
	}
	if err = os.WriteFile(filename, b, 0600); chk.E(err) {
		return
	}
	return
}

func (c *Config) Load(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot load into nil config")
		chk.E(err)
		return
	}
	var b []byte
	if b, err = os.ReadFile(filename); chk.D(err) {
		return
	}
	if err = json.Unmarshal(b, c); chk.E(err) {
		return
	}
	return
}

// Merge fills the fields that were not given on the command line from a saved
// configuration. Lists given on the command line are added to the saved ones.
func (c *Config) Merge(saved *Config) {
	if saved == nil {
		return
	}
	str := func(dst *string, src string, def string) {
		if (*dst == "" || *dst == def) && src != "" {
			*dst = src
		}
	}
	str(&c.Listen, saved.Listen, "0.0.0.0:3334")
	str(&c.EventStore, saved.EventStore, Badger)
	str(&c.Name, saved.Name, "relayd")
	str(&c.Description, saved.Description, "")
	str(&c.Pubkey, saved.Pubkey, "")
	str(&c.Contact, saved.Contact, "")
	str(&c.Icon, saved.Icon, "")
	str(&c.MembershipURL, saved.MembershipURL, "")
	str(&c.WebhookURL, saved.WebhookURL, "")
	c.AllowedPubkeys = append(c.AllowedPubkeys, saved.AllowedPubkeys...)
	c.Whitelist = append(c.Whitelist, saved.Whitelist...)
	if len(c.WebhookKinds) == 0 {
		c.WebhookKinds = saved.WebhookKinds
	}
	if len(c.ProtectedKinds) == 0 {
		c.ProtectedKinds = saved.ProtectedKinds
	}
	num := func(dst *int, src int, def int) {
		if *dst == def && src != 0 {
			*dst = src
		}
	}
	num(&c.MembershipTTL, saved.MembershipTTL, 300)
	num(&c.WebhookTimeout, saved.WebhookTimeout, 5)
	num(&c.MaxSubscriptions, saved.MaxSubscriptions, 20)
	num(&c.MaxFilters, saved.MaxFilters, 10)
	num(&c.MaxLimit, saved.MaxLimit, eventstore.MaxLimit)
	num(&c.DefaultLimit, saved.DefaultLimit, eventstore.DefaultLimit)
	num(&c.MaxSubIDLength, saved.MaxSubIDLength, subscriptionid.MaxLen)
	num(&c.MaxFutureSkew, saved.MaxFutureSkew, 600)
	num(&c.MaxMessageSize, saved.MaxMessageSize, MaxMessageSize)
	num(&c.MaxQueueBytes, saved.MaxQueueBytes, MaxQueueBytes)
	num(&c.RetentionDays, saved.RetentionDays, 90)
	num(&c.PruneInterval, saved.PruneInterval, 60)
}

// Limits are the protocol limits from the configuration, with the defaults
// for anything unset.
func (c *Config) Limits() (l Limits) {
	l = DefaultLimits()
	set := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	set(&l.MaxSubscriptions, c.MaxSubscriptions)
	set(&l.MaxFilters, c.MaxFilters)
	set(&l.Query.Max, c.MaxLimit)
	set(&l.Query.Default, c.DefaultLimit)
	set(&l.MaxSubIDLength, c.MaxSubIDLength)
	set(&l.MaxMessageSize, c.MaxMessageSize)
	set(&l.MaxQueueBytes, c.MaxQueueBytes)
	if c.MaxFutureSkew > 0 {
		l.MaxFutureSkew = time.Duration(c.MaxFutureSkew) * time.Second
	}
	return
}

// Protected is the list of kinds never pruned.
func (c *Config) Protected() kinds.T {
	if len(c.ProtectedKinds) == 0 {
		return DefaultProtectedKinds
	}
	return kinds.FromIntSlice(c.ProtectedKinds)
}

// Retention is the maximum age of an unprotected event, zero for forever.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
