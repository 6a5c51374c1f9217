package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"doorman/internal/bot"
	"doorman/internal/config"
	"doorman/internal/logging"
	"doorman/internal/store"
)

// Daemon supervises the bot and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	bot    *bot.Bot

	lockPath string
	lock     *flock.Flock

	// running marks a launched run loop; the bot reports its own readiness.
	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Bot          bot.Status
	DatabasePath string
	LockFilePath string
	LastError    string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, b *bot.Bot) (*Daemon, error) {
	if cfg == nil || st == nil || b == nil {
		return nil, errors.New("daemon requires config, store, and bot")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		bot:      b,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the bot.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another doorman daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.runErr = nil
	d.mu.Unlock()

	d.running.Store(true)
	d.logger.Info("doorman daemon started", logging.String("lock", d.lockPath))

	go func() {
		defer close(done)
		err := d.bot.Run(runCtx)
		d.mu.Lock()
		d.runErr = err
		d.mu.Unlock()
		if err != nil {
			d.logger.Error("bot exited", logging.Error(err))
		}
		d.running.Store(false)
	}()

	return nil
}

// Stop disconnects the bot and releases the daemon lock. The process keeps
// serving IPC so the daemon can be restarted remotely.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("doorman daemon stopped")
}

// Wait blocks until the bot run loop returns and reports its error.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status. Running reflects the bot being
// online, not merely launched: it stays false until the startup sequence
// completes.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	lastErr := ""
	if d.runErr != nil {
		lastErr = d.runErr.Error()
	}
	d.mu.Unlock()

	botStatus := d.bot.Status()
	return Status{
		Running:      botStatus.Running,
		PID:          os.Getpid(),
		Bot:          botStatus,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		LastError:    lastErr,
	}
}

// Clients returns the bot's live roster.
func (d *Daemon) Clients() []bot.Client {
	return d.bot.Roster().All()
}

// Say broadcasts a server-wide message through the bot.
func (d *Daemon) Say(ctx context.Context, message string) error {
	if !d.bot.Status().Running {
		return errors.New("bot is not running")
	}
	return d.bot.Say(ctx, message)
}

// SyncRegulars reconciles regular-group membership for every tracked client.
func (d *Daemon) SyncRegulars(ctx context.Context) error {
	if !d.bot.Status().Running {
		return errors.New("bot is not running")
	}
	d.bot.SyncRegulars(ctx)
	return nil
}

// Linked reports whether a voice identity has a linked account.
func (d *Daemon) Linked(ctx context.Context, voiceUID string) bool {
	account, err := d.store.Account(ctx, voiceUID)
	return err == nil && account != nil
}

// RedeemLinkToken consumes a link token and records the account link.
func (d *Daemon) RedeemLinkToken(ctx context.Context, token string, userID int64, gameID string) (string, error) {
	return d.store.RedeemLinkToken(ctx, token, userID, gameID)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}
