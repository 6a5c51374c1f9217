package daemon_test

import (
	"context"
	"testing"
	"time"

	"doorman/internal/bot"
	"doorman/internal/daemon"
	"doorman/internal/testsupport"
)

func newTestDaemon(t *testing.T) (*daemon.Daemon, *testsupport.FakeQuery) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewFakeQuery()
	b := bot.New(cfg, nil, st, nil, func() bot.QueryClient { return client })

	d, err := daemon.New(cfg, st, nil, b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, client
}

func waitRunning(t *testing.T, d *daemon.Daemon, want bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if d.Status().Running == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("daemon running state never became %v", want)
}

func TestStartStop(t *testing.T) {
	d, _ := newTestDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitRunning(t, d, true)

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}

	d.Stop()
	waitRunning(t, d, false)

	// Stop is idempotent and the lock is reusable afterwards.
	d.Stop()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitRunning(t, d, true)
	d.Stop()
}

func TestRunningStatusImpliesBotReady(t *testing.T) {
	d, client := newTestDaemon(t)

	// A Running status must mean the startup sequence has finished, so Say
	// and the resolved home channel are immediately available.
	for i := 0; i < 3; i++ {
		if err := d.Start(context.Background()); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		waitRunning(t, d, true)

		if err := d.Say(context.Background(), "ready"); err != nil {
			t.Fatalf("say after running status: %v", err)
		}
		if got := d.Status(); got.Bot.HomeChannelID != 7 {
			t.Fatalf("home channel = %d", got.Bot.HomeChannelID)
		}

		d.Stop()
		waitRunning(t, d, false)
	}

	if got := len(client.Sent()); got != 3 {
		t.Fatalf("sent %d messages, want 3", got)
	}
}

func TestSayRequiresRunningBot(t *testing.T) {
	d, client := newTestDaemon(t)

	if err := d.Say(context.Background(), "hello"); err == nil {
		t.Fatal("say should fail while stopped")
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	waitRunning(t, d, true)

	if err := d.Say(context.Background(), "hello"); err != nil {
		t.Fatalf("Say: %v", err)
	}
	sent := client.Sent()
	if len(sent) != 1 || sent[0].Message != "hello" {
		t.Fatalf("sent = %#v", sent)
	}
}

func TestStatusReportsBotState(t *testing.T) {
	d, _ := newTestDaemon(t)

	status := d.Status()
	if status.Running {
		t.Fatal("daemon reports running before start")
	}
	if status.DatabasePath == "" || status.LockFilePath == "" {
		t.Fatalf("status paths missing: %#v", status)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	waitRunning(t, d, true)

	status = d.Status()
	if status.Bot.HomeChannelID != 7 {
		t.Fatalf("home channel = %d", status.Bot.HomeChannelID)
	}
	if status.PID <= 0 {
		t.Fatalf("pid = %d", status.PID)
	}
}
