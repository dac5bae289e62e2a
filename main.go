package main

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/Hubmakerlabs/relayd/app"
	"github.com/Hubmakerlabs/relayd/pkg/acl"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/memory"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/sqlite"
	"github.com/Hubmakerlabs/relayd/pkg/interrupt"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/nip11"
	"github.com/Hubmakerlabs/relayd/pkg/notify"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
	"github.com/Hubmakerlabs/relayd/pkg/units"
)

var AppName = "relayd"

var args app.Config

var log, chk = slog.New(os.Stderr)

func main() {
	arg.MustParse(&args)
	if !slog.SetLogLevelByName(args.LogLevel) {
		log.W.F("unknown log level '%s'", args.LogLevel)
	}
	log.T.S(args)
	runtime.GOMAXPROCS(args.MaxProcs)
	var err error
	dataDir := args.Profile
	if !filepath.IsAbs(dataDir) {
		var home string
		if home, err = os.UserHomeDir(); chk.E(err) {
			os.Exit(1)
		}
		dataDir = filepath.Join(home, dataDir)
	}
	log.D.F("using profile directory: %s", dataDir)
	infoPath := filepath.Join(dataDir, "info.json")
	configPath := filepath.Join(dataDir, "config.json")
	if args.InitCfgCmd != nil {
		if err = initConfig(configPath, infoPath); chk.E(err) {
			os.Exit(1)
		}
		return
	}
	saved := &app.Config{}
	if err = saved.Load(configPath); err == nil {
		args.Merge(saved)
	} else {
		log.D.F("no relay configuration at '%s', using the command line only",
			configPath)
	}
	inf := nip11.NewInfo(nil)
	if err = inf.Load(infoPath); err != nil {
		log.D.F("failed to load relay information document: '%s', "+
			"deriving from config", err)
		inf = infoFromConfig(&args)
	}
	var store eventstore.Store
	if store, err = openStore(dataDir, &args); chk.E(err) {
		log.E.F("unable to start database: '%s'", err)
		os.Exit(1)
	}
	var checker acl.Checker
	if checker, err = accessControl(&args); chk.E(err) {
		chk.E(store.Close())
		os.Exit(1)
	}
	var notifier notify.Notifier
	if args.WebhookURL != "" {
		notifier = notify.NewWebhook(args.WebhookURL,
			kinds.FromIntSlice(args.WebhookKinds),
			time.Duration(args.WebhookTimeout)*time.Second, 0)
	}
	c, cancel := context.Cancel(context.Bg())
	rl := app.NewRelay(c, cancel, inf, &args, store, checker, notifier)
	switch {
	case args.ImportCmd != nil:
		err = rl.Import(c, args.ImportCmd.FromFile)
	case args.ExportCmd != nil:
		err = rl.Export(c, args.ExportCmd.ToFile)
	case args.WipeCmd != nil:
		err = rl.Wipe()
	case args.PruneCmd != nil:
		maxAge := args.Retention()
		if args.PruneCmd.Days > 0 {
			maxAge = time.Duration(args.PruneCmd.Days) * 24 * time.Hour
		}
		if maxAge <= 0 {
			log.I.Ln("retention is unlimited, nothing to prune")
			break
		}
		_, err = rl.Prune(c, maxAge)
	default:
		serve(c, rl, store)
		return
	}
	cancel()
	chk.E(store.Close())
	if err != nil {
		os.Exit(1)
	}
}

func serve(c context.T, rl *app.Relay, store eventstore.Store) {
	interrupt.AddHandler(func() {
		log.I.Ln("closing event store")
		chk.E(store.Close())
	})
	interrupt.AddHandler(func() {
		sc, cancel := context.Timeout(context.Bg(), 5*time.Second)
		defer cancel()
		rl.Cancel()
		rl.Shutdown(sc)
	})
	go rl.Maintain(c, time.Duration(args.PruneInterval)*time.Minute)
	if err := rl.Start(args.Listen); chk.E(err) {
		interrupt.Request()
	}
	<-interrupt.HandlersDone
}

// initConfig writes the configuration given on the command line and the
// relay information document derived from it into the profile directory.
func initConfig(configPath, infoPath string) (err error) {
	if err = args.Save(configPath); chk.E(err) {
		log.E.F("failed to write relay configuration: '%s'", err)
		return
	}
	if err = infoFromConfig(&args).Save(infoPath); chk.E(err) {
		log.E.F("failed to write relay information document: '%s'", err)
		return
	}
	log.I.F("wrote %s and %s", configPath, infoPath)
	return
}

func infoFromConfig(conf *app.Config) *nip11.Info {
	return nip11.NewInfo(&nip11.Info{
		Name:        conf.Name,
		Description: conf.Description,
		PubKey:      conf.Pubkey,
		Contact:     conf.Contact,
		Software:    AppName,
		Version:     app.Version,
		Icon:        conf.Icon,
	})
}

func openStore(dataDir string, conf *app.Config) (store eventstore.Store,
	err error) {

	limits := conf.Limits().Query
	switch conf.EventStore {
	case app.Badger:
		b := badger.GetBackend(filepath.Join(dataDir, "badger"), false,
			64*units.Mb)
		b.Limits = limits
		if err = b.Init(); chk.E(err) {
			return
		}
		store = b
	case app.SQLite:
		b := sqlite.New(filepath.Join(dataDir, "relayd.sqlite"))
		b.Limits = limits
		if err = os.MkdirAll(dataDir, 0700); chk.E(err) {
			return
		}
		if err = b.Init(); chk.E(err) {
			return
		}
		store = b
	case app.Memory:
		b := memory.New()
		b.Limits = limits
		store = b
	default:
		err = log.E.Err("unknown event store '%s', use one of %s, %s or %s",
			conf.EventStore, app.Badger, app.SQLite, app.Memory)
	}
	return
}

// accessControl builds the authorization oracle. Without allowed pubkeys or a
// membership service anyone may publish.
func accessControl(conf *app.Config) (checker acl.Checker, err error) {
	var list *acl.Static
	if len(conf.AllowedPubkeys) > 0 {
		if list, err = acl.NewStatic(conf.Pubkey,
			conf.AllowedPubkeys...); chk.E(err) {
			return
		}
	}
	var members *acl.Membership
	if conf.MembershipURL != "" {
		if members, err = acl.NewMembership(conf.MembershipURL,
			time.Duration(conf.MembershipTTL)*time.Second); chk.E(err) {
			return
		}
	}
	switch {
	case list != nil && members != nil:
		checker = acl.Guard{List: list, Next: acl.Any{list, members}}
	case list != nil:
		checker = list
	case members != nil:
		checker = members
	}
	return
}
