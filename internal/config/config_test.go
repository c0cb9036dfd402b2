package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := NewManager("").Parse()
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "@every 600s", cfg.Relay.Schedule)
	assert.Equal(t, DefaultEndpoint, cfg.Practicum.Endpoint)
}

func TestParseYAMLOverlaysDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "hwbot.yaml", `
relay:
  schedule: 5m
  empty_homeworks: error
  greeting: true
  report_errors: false
logging:
  level: info
`)
	cfg, err := NewManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, "5m", cfg.Relay.Schedule)
	assert.Equal(t, EmptyError, cfg.Relay.EmptyHomeworks)
	assert.True(t, cfg.Relay.Greeting)
	assert.False(t, cfg.Relay.ReportErrors)
	assert.Equal(t, "info", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.Equal(t, SendErrorsPropagate, cfg.Relay.SendErrors)
	assert.Equal(t, "10s", cfg.Telegram.SendTimeout)
	assert.True(t, cfg.Logging.Console)
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "hwbot.json", `{"storage":{"driver":"file","path":"/tmp/x/journal"}}`)
	cfg, err := NewManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Driver)
}

func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "unknown field", file: "c.yaml", body: "relay:\n  interval: 10m\n"},
		{name: "bad duration", file: "c.yaml", body: "telegram:\n  send_timeout: soon\n"},
		{name: "bad empty policy", file: "c.yaml", body: "relay:\n  empty_homeworks: panic\n"},
		{name: "bad send policy", file: "c.yaml", body: "relay:\n  send_errors: retry\n"},
		{name: "storage without path", file: "c.yaml", body: "storage:\n  driver: sqlite\n"},
		{name: "unknown storage", file: "c.yaml", body: "storage:\n  driver: redis\n  path: x\n"},
		{name: "bad endpoint", file: "c.yaml", body: "practicum:\n  endpoint: not a url\n"},
		{name: "trailing json", file: "c.json", body: `{} {}`},
		{name: "broken yaml", file: "c.yml", body: "relay: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := writeFile(t, t.TempDir(), tt.file, tt.body)
			_, err := NewManager(p).Parse()
			assert.Error(t, err)
		})
	}
}

func TestEmptyYAMLFileIsDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "empty.yaml", "")
	cfg, err := NewManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestCredentialsCheck(t *testing.T) {
	t.Parallel()
	full := Credentials{PracticumToken: "p", TelegramToken: "t", ChatID: "42"}
	require.NoError(t, full.Check())

	tests := []struct {
		name    string
		creds   Credentials
		missing []string
	}{
		{name: "practicum", creds: Credentials{TelegramToken: "t", ChatID: "1"}, missing: []string{EnvPracticumToken}},
		{name: "telegram", creds: Credentials{PracticumToken: "p", ChatID: "1"}, missing: []string{EnvTelegramToken}},
		{name: "chat", creds: Credentials{PracticumToken: "p", TelegramToken: "t", ChatID: "  "}, missing: []string{EnvChatID}},
		{name: "all", creds: Credentials{}, missing: []string{EnvPracticumToken, EnvTelegramToken, EnvChatID}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.creds.Check()
			require.ErrorIs(t, err, ErrMissingCredentials)
			var mce *MissingCredentialsError
			require.ErrorAs(t, err, &mce)
			assert.Equal(t, tt.missing, mce.Missing)
		})
	}
}

func TestCredentialsFrom(t *testing.T) {
	t.Parallel()
	env := map[string]string{EnvPracticumToken: " p ", EnvTelegramToken: "t", EnvChatID: "-100"}
	c := CredentialsFrom(func(k string) string { return env[k] })
	assert.Equal(t, Credentials{PracticumToken: "p", TelegramToken: "t", ChatID: "-100"}, c)
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadCredentialsFromDotenv(t *testing.T) {
	unsetenv(t, EnvPracticumToken, EnvTelegramToken, EnvChatID)
	p := writeFile(t, t.TempDir(), ".env", "PRACTICUM=ptok\nTELEGRAM=ttok\nCHAT_ID=12345\n")

	c, err := LoadCredentials(p)
	require.NoError(t, err)
	assert.Equal(t, Credentials{PracticumToken: "ptok", TelegramToken: "ttok", ChatID: "12345"}, c)
}

func TestLoadCredentialsEnvWinsOverDotenv(t *testing.T) {
	unsetenv(t, EnvTelegramToken, EnvChatID)
	t.Setenv(EnvPracticumToken, "from-env")
	p := writeFile(t, t.TempDir(), ".env", "PRACTICUM=from-file\n")

	c, err := LoadCredentials(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.PracticumToken)
	assert.ErrorIs(t, c.Check(), ErrMissingCredentials)
}

func TestLoadCredentialsMissingExplicitFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestWatchPublishesReload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "hwbot.yaml", "relay:\n  schedule: 10m\n")

	m := NewManager(p)
	m.debounce = 20 * time.Millisecond
	_, err := m.Load()
	require.NoError(t, err)

	sub := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte("relay:\n  schedule: 15m\n"), 0o600))

	select {
	case cfg := <-sub:
		require.NotNil(t, cfg)
		assert.Equal(t, "15m", cfg.Relay.Schedule)
		assert.Equal(t, "15m", m.Get().Relay.Schedule)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload published")
	}

	cancel()
	<-done
}

func TestWatchRejectsInvalidReload(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "hwbot.yaml", "relay:\n  schedule: 10m\n")
	m := NewManager(p)
	_, err := m.Load()
	require.NoError(t, err)
	m.SetValidator(func(context.Context, *Config) error { return assert.AnError })

	sub := m.Subscribe(1)
	require.NoError(t, os.WriteFile(p, []byte("relay:\n  schedule: 20m\n"), 0o600))
	m.reload(context.Background())

	select {
	case <-sub:
		t.Fatal("rejected config must not be published")
	default:
	}
	assert.Equal(t, "10m", m.Get().Relay.Schedule)
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseDurationOrDefault("x", "0s", 7*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, d)

	_, err = ParseDurationField("x", "-1s")
	assert.Error(t, err)
}

func TestChangedSections(t *testing.T) {
	t.Parallel()
	a := Default()
	b := Default()
	assert.Empty(t, ChangedSections(&a, &b))

	b.Relay.Schedule = "@every 1m"
	b.Storage.Driver = "file"
	b.Storage.Path = "x.jsonl"
	assert.Equal(t, []string{"relay", "storage"}, ChangedSections(&a, &b))
	assert.Len(t, ChangedSections(nil, &b), 6)
	assert.Nil(t, ChangedSections(&a, nil))
}
