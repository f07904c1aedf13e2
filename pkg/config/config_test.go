package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/token-tracker/pkg/config/source"
	"github.com/ninja0404/token-tracker/pkg/config/source/file"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadYAMLAndScan(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
tracker:
  wallets:
    - W1
    - W2
  history_cap: 25
logger:
  level: debug
`)

	c := New(WithWatch(false))
	require.NoError(t, c.Load(file.NewSource(file.WithPath(p))))

	var out struct {
		Tracker struct {
			Wallets    []string `json:"wallets"`
			HistoryCap int      `json:"history_cap"`
		} `json:"tracker"`
	}
	require.NoError(t, c.Scan(&out))
	assert.Equal(t, []string{"W1", "W2"}, out.Tracker.Wallets)
	assert.Equal(t, 25, out.Tracker.HistoryCap)
	assert.Equal(t, "debug", c.Get("logger", "level").String(""))
	assert.Equal(t, 7, c.Get("missing", "key").Int(7))
}

func TestLaterSourceOverrides(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.json", `{"name":"base","interval":30}`)
	override := writeFile(t, dir, "override.toml", "name = \"override\"\n")

	c := New(WithWatch(false))
	require.NoError(t, c.Load(
		file.NewSource(file.WithPath(base)),
		file.NewSource(file.WithPath(override)),
	))
	assert.Equal(t, "override", c.Get("name").String(""))
	assert.Equal(t, 30, c.Get("interval").Int(0))
}

func TestEnvSubstitution(t *testing.T) {
	t.Setenv("TRACKER_TEST_RPC", "https://rpc.example")
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "rpc: ${TRACKER_TEST_RPC}\nlevel: ${TRACKER_TEST_MISSING:-info}\n")

	c := New(WithWatch(false))
	require.NoError(t, c.Load(file.NewSource(file.WithPath(p))))
	assert.Equal(t, "https://rpc.example", c.Get("rpc").String(""))
	assert.Equal(t, "info", c.Get("level").String(""))
}

func TestLoadMissingFile(t *testing.T) {
	c := New(WithWatch(false))
	err := c.Load(file.NewSource(file.WithPath(filepath.Join(t.TempDir(), "nope.yaml"))))
	require.Error(t, err)
}

func TestValueConversions(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "c.json", `{"d":"1m","n":"12","b":"true","s":"a, b"}`)
	c := New(WithWatch(false))
	require.NoError(t, c.Load(file.NewSource(file.WithPath(p), source.WithFormat(".json"))))

	assert.Equal(t, time.Minute, c.Get("d").Duration(0))
	assert.Equal(t, 12, c.Get("n").Int(0))
	assert.True(t, c.Get("b").Bool(false))
	assert.Equal(t, []string{"a", "b"}, c.Get("s").StringSlice(nil))
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "name: first\n")

	c := New()
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Load(file.NewSource(file.WithPath(p))))

	changed := make(chan struct{}, 1)
	c.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	require.NoError(t, os.WriteFile(p, []byte("name: second\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
	assert.Equal(t, "second", c.Get("name").String(""))
}
