package slog_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stdout)

func TestGetLogger(t *testing.T) {
	defer slog.SetLogLevel(slog.Info)
	slog.SetLogLevel(slog.Trace)
	log.T.Ln("testing log level", slog.LevelSpecs[slog.Trace].Name)
	log.D.Ln("testing log level", slog.LevelSpecs[slog.Debug].Name)
	log.I.Ln("testing log level", slog.LevelSpecs[slog.Info].Name)
	log.W.Ln("testing log level", slog.LevelSpecs[slog.Warn].Name)
	log.E.F("testing log level %s", slog.LevelSpecs[slog.Error].Name)
	log.F.Ln("testing log level", slog.LevelSpecs[slog.Fatal].Name)
	chk.F(errors.New("dummy error as fatal"))
	chk.E(errors.New("dummy error as error"))
	chk.W(errors.New("dummy error as warning"))
	chk.I(errors.New("dummy error as info"))
	chk.D(errors.New("dummy error as debug"))
	chk.T(errors.New("dummy error as trace"))
	if log.I.Err("format string %d '%s'", 5, "testing") == nil {
		t.Fatal("Err must return an error")
	}
	if log.I.Chk(nil) {
		t.Fatal("Chk(nil) must be false")
	}
	log.I.S("`backtick wrapped string`", t)
}

func TestLevelGating(t *testing.T) {
	defer slog.SetLogLevel(slog.Info)
	var buf bytes.Buffer
	l, c := slog.New(&buf)
	slog.SetLogLevel(slog.Warn)
	l.D.Ln("hidden")
	l.I.F("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.W.Ln("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
	// a check still reports the error even if it is not printed
	if !c.T(errors.New("quiet")) {
		t.Fatal("Chk must return true for a non-nil error")
	}
	if strings.Contains(buf.String(), "quiet") {
		t.Fatal("trace check printed while level is warn")
	}
}

func TestSetLogLevelByName(t *testing.T) {
	defer slog.SetLogLevel(slog.Info)
	for name, want := range map[string]int{
		"trace": slog.Trace, "d": slog.Debug, "ERROR": slog.Error, "off": slog.Off,
	} {
		if !slog.SetLogLevelByName(name) {
			t.Fatalf("%s not recognised", name)
		}
		if got := slog.GetLogLevel(); got != want {
			t.Fatalf("%s: got level %d want %d", name, got, want)
		}
	}
	if slog.SetLogLevelByName("nonsense") {
		t.Fatal("unknown level name accepted")
	}
}
