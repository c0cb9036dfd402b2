package notifier

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	to    []kit.ChatTarget
	fail  error
	delay time.Duration
}

func (f *fakeSender) SendText(ctx context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return kit.MessageRef{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return kit.MessageRef{}, f.fail
	}
	f.sent = append(f.sent, text)
	f.to = append(f.to, to)
	return kit.MessageRef{Chat: to.Chat, MessageID: len(f.sent)}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newService(s kit.Sender, st storage.Store) *Service {
	return New(Config{Target: kit.ChatTarget{Chat: "42"}, RatePerSec: 1000}, s, logx.Nop(), st)
}

func TestNotifySuppressesRepeat(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	svc := newService(fs, nil)
	ctx := context.Background()

	sent, err := svc.Notify(ctx, "a")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = svc.Notify(ctx, "a")
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Equal(t, []string{"a"}, fs.texts())
	assert.Equal(t, "42", fs.to[0].Chat)
}

func TestNotifyOnlyComparesWithLast(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	svc := newService(fs, nil)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "a", "a"} {
		_, err := svc.Notify(ctx, s)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "a"}, fs.texts())
	assert.Equal(t, "a", svc.LastSent())
}

func TestNotifyFailureKeepsLastSent(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	svc := newService(fs, nil)
	ctx := context.Background()

	_, err := svc.Notify(ctx, "a")
	require.NoError(t, err)

	fs.fail = errors.New("chat not found")
	sent, err := svc.Notify(ctx, "b")
	assert.False(t, sent)
	require.ErrorIs(t, err, ErrSend)
	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "b", se.Text)
	assert.Equal(t, "a", svc.LastSent())

	// The failed text is retried on the next call.
	fs.fail = nil
	sent, err = svc.Notify(ctx, "b")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"a", "b"}, fs.texts())
}

func TestNotifySendTimeout(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{delay: time.Second}
	svc := New(Config{Target: kit.ChatTarget{Chat: "1"}, SendTimeout: 20 * time.Millisecond}, fs, logx.Nop(), nil)
	_, err := svc.Notify(context.Background(), "slow")
	require.ErrorIs(t, err, ErrSend)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotifyRejectsEmptyAndCanceled(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	svc := newService(fs, nil)

	_, err := svc.Notify(context.Background(), "")
	require.ErrorIs(t, err, ErrEmpty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Notify(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrSend))
	assert.Empty(t, fs.texts())
}

func TestHistoryIsBounded(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	svc := New(Config{Target: kit.ChatTarget{Chat: "1"}, RatePerSec: 1000, HistorySize: 2}, fs, logx.Nop(), nil)
	for _, s := range []string{"a", "b", "c"} {
		_, err := svc.NotifyKind(context.Background(), storage.KindError, s)
		require.NoError(t, err)
	}
	h := svc.Snapshot()
	require.Len(t, h, 2)
	assert.Equal(t, "b", h[0].Text)
	assert.Equal(t, "c", h[1].Text)
	assert.Equal(t, storage.KindError, h[1].Kind)
	assert.Equal(t, 3, h[1].MessageID)
}

func TestNotifyWritesJournal(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j.jsonl")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fs := &fakeSender{}
	svc := newService(fs, st)
	ctx := context.Background()

	_, err = svc.NotifyKind(ctx, storage.KindGreeting, "hello")
	require.NoError(t, err)
	_, err = svc.Notify(ctx, "hello") // suppressed, not journaled
	require.NoError(t, err)
	fs.fail = errors.New("boom")
	_, err = svc.Notify(ctx, "status")
	require.Error(t, err)

	got, err := st.RecentDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, storage.KindGreeting, got[0].Kind)
	assert.True(t, got[0].OK())
	assert.Equal(t, "42", got[0].Chat)
	assert.Equal(t, "status", got[1].Text)
	assert.Equal(t, "boom", got[1].Error)
}

func TestApplyKeepsLastSent(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	svc := newService(fs, nil)
	_, err := svc.Notify(context.Background(), "a")
	require.NoError(t, err)

	svc.Apply(Config{Target: kit.ChatTarget{Chat: "42", ThreadID: 7}, RatePerSec: 5})
	sent, err := svc.Notify(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, sent)

	_, err = svc.Notify(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 7, fs.to[1].ThreadID)
}
