package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
)

func TestConfigSaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "profile", "config.json")
	c := &Config{
		Listen:         "127.0.0.1:4444",
		Name:           "saved",
		AllowedPubkeys: []string{"aa"},
		RetentionDays:  30,
		ProtectedKinds: []int{0, 3},
		LogLevel:       "trace",
		ExportCmd:      &ExportCmd{ToFile: "x"},
	}
	require.NoError(t, c.Save(file))
	loaded := &Config{}
	require.NoError(t, loaded.Load(file))
	assert.Equal(t, "127.0.0.1:4444", loaded.Listen)
	assert.Equal(t, "saved", loaded.Name)
	assert.Equal(t, []string{"aa"}, loaded.AllowedPubkeys)
	assert.Equal(t, 30, loaded.RetentionDays)
	// command line only
	assert.Empty(t, loaded.LogLevel)
	assert.Nil(t, loaded.ExportCmd)

	assert.Error(t, (&Config{}).Load(filepath.Join(t.TempDir(), "missing")))
	var nilConfig *Config
	assert.Error(t, nilConfig.Save(file))
}

func TestConfigMerge(t *testing.T) {
	c := &Config{
		Listen:         "0.0.0.0:3334",
		EventStore:     Badger,
		Name:           "relayd",
		AllowedPubkeys: []string{"cli"},
		MaxLimit:       500,
		MaxFilters:     3,
		RetentionDays:  90,
	}
	c.Merge(&Config{
		Listen:         "127.0.0.1:9999",
		EventStore:     SQLite,
		Name:           "my relay",
		AllowedPubkeys: []string{"saved"},
		MaxLimit:       50,
		MaxFilters:     7,
		RetentionDays:  0,
		ProtectedKinds: []int{1},
	})
	assert.Equal(t, "127.0.0.1:9999", c.Listen)
	assert.Equal(t, SQLite, c.EventStore)
	assert.Equal(t, "my relay", c.Name)
	assert.Equal(t, []string{"cli", "saved"}, c.AllowedPubkeys)
	assert.Equal(t, 50, c.MaxLimit)
	// given on the command line
	assert.Equal(t, 3, c.MaxFilters)
	assert.Equal(t, 90, c.RetentionDays)
	assert.Equal(t, []int{1}, c.ProtectedKinds)
	c.Merge(nil)
	assert.Equal(t, SQLite, c.EventStore)
}

func TestConfigLimits(t *testing.T) {
	l := (&Config{}).Limits()
	assert.Equal(t, DefaultLimits(), l)
	assert.Equal(t, 20, l.MaxSubscriptions)
	assert.Equal(t, 10, l.MaxFilters)
	assert.Equal(t, 64, l.MaxSubIDLength)
	assert.Equal(t, 600*time.Second, l.MaxFutureSkew)
	assert.Equal(t, 500, l.Query.Max)
	assert.Equal(t, 100, l.Query.Default)

	l = (&Config{MaxSubscriptions: 2, MaxLimit: 50, DefaultLimit: 5,
		MaxFutureSkew: 30}).Limits()
	assert.Equal(t, 2, l.MaxSubscriptions)
	assert.Equal(t, 50, l.Query.Max)
	assert.Equal(t, 5, l.Query.Default)
	assert.Equal(t, 30*time.Second, l.MaxFutureSkew)
}

func TestConfigRetention(t *testing.T) {
	c := &Config{}
	assert.Equal(t, time.Duration(0), c.Retention())
	assert.Equal(t, DefaultProtectedKinds, c.Protected())
	c.RetentionDays, c.ProtectedKinds = 2, []int{7}
	assert.Equal(t, 48*time.Hour, c.Retention())
	assert.Equal(t, kinds.T{7}, c.Protected())
}
