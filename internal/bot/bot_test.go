package bot

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/modmail/internal/config"
)

type fakeListener struct {
	mu            sync.Mutex
	deleteParams  *tgbot.DeleteWebhookParams
	setParams     *tgbot.SetWebhookParams
	polled        bool
	webhooked     bool
	setErr        error
	returnAtOnce  bool
	started       chan struct{}
	startedClosed sync.Once
}

func newFakeListener() *fakeListener {
	return &fakeListener{started: make(chan struct{})}
}

func (f *fakeListener) block(ctx context.Context) {
	f.startedClosed.Do(func() { close(f.started) })
	if f.returnAtOnce {
		return
	}
	<-ctx.Done()
}

func (f *fakeListener) Start(ctx context.Context) {
	f.mu.Lock()
	f.polled = true
	f.mu.Unlock()
	f.block(ctx)
}

func (f *fakeListener) StartWebhook(ctx context.Context) {
	f.mu.Lock()
	f.webhooked = true
	f.mu.Unlock()
	f.block(ctx)
}

func (f *fakeListener) DeleteWebhook(_ context.Context, params *tgbot.DeleteWebhookParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteParams = params
	return true, nil
}

func (f *fakeListener) SetWebhook(_ context.Context, params *tgbot.SetWebhookParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setParams = params
	return f.setErr == nil, f.setErr
}

func testConfig(mode string) *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.Mode = mode
	cfg.Telegram.WebhookURL = "https://modmail.example.com/telegram/webhook"
	cfg.Telegram.WebhookSecret = "s3cret"
	cfg.Telegram.DropPendingUpdates = true
	cfg.HTTP.ShutdownTimeout = time.Second
	return cfg
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(discardLogger(), &config.SchedulerConfig{}, nil)
	require.NoError(t, err)
	return s
}

func runInBackground(ctx context.Context, b *Bot) <-chan error {
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	return done
}

func TestRunPolling(t *testing.T) {
	t.Parallel()
	l := newFakeListener()
	b := NewBot(discardLogger(), testConfig("polling"), l, newTestScheduler(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, b)

	<-l.started
	cancel()
	require.NoError(t, <-done)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.True(t, l.polled)
	assert.False(t, l.webhooked)
	require.NotNil(t, l.deleteParams)
	assert.True(t, l.deleteParams.DropPendingUpdates)
}

func TestRunWebhook(t *testing.T) {
	t.Parallel()
	l := newFakeListener()
	b := NewBot(discardLogger(), testConfig("webhook"), l, newTestScheduler(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, b)

	<-l.started
	cancel()
	require.NoError(t, <-done)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.True(t, l.webhooked)
	assert.False(t, l.polled)
	require.NotNil(t, l.setParams)
	assert.Equal(t, "https://modmail.example.com/telegram/webhook", l.setParams.URL)
	assert.Equal(t, "s3cret", l.setParams.SecretToken)
	assert.True(t, l.setParams.DropPendingUpdates)
}

func TestRunWebhookRegistrationFails(t *testing.T) {
	t.Parallel()
	l := newFakeListener()
	l.setErr = errors.New("bad webhook: HTTPS url must be provided")
	b := NewBot(discardLogger(), testConfig("webhook"), l, newTestScheduler(t), nil)

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, l.setErr)
}

func TestRunListenerStopsUnexpectedly(t *testing.T) {
	t.Parallel()
	l := newFakeListener()
	l.returnAtOnce = true
	b := NewBot(discardLogger(), testConfig("polling"), l, newTestScheduler(t), nil)

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped unexpectedly")
}

func TestRunServesHTTPUntilShutdown(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	l := newFakeListener()
	b := NewBot(discardLogger(), testConfig("polling"), l, newTestScheduler(t), srv)

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, b)

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err = http.Get("http://" + addr + "/")
	assert.Error(t, err, "server is shut down")
}
