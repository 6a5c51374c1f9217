package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"doorman/internal/config"
	"doorman/internal/logging"
	"doorman/internal/profile"
	"doorman/internal/query"
	"doorman/internal/store"
)

// QueryClient is the slice of the query connection the bot drives. *query.Conn
// satisfies it; tests substitute a scripted fake.
type QueryClient interface {
	Connect(ctx context.Context) error
	Close() error

	Login(ctx context.Context, username, password string) error
	Use(ctx context.Context, serverID int) error
	Whoami(ctx context.Context) (map[string]string, error)
	ClientList(ctx context.Context, flags ...string) ([]map[string]string, error)
	ChannelFind(ctx context.Context, pattern string) ([]map[string]string, error)
	ServerGroupList(ctx context.Context) ([]map[string]string, error)
	ClientMove(ctx context.Context, channelID, clientID int) error
	SendTextMessage(ctx context.Context, mode query.TargetMode, target int, message string) error
	ClientUpdate(ctx context.Context, properties map[string]string) error
	ServerGroupAddClient(ctx context.Context, groupID, clientDBID int) error
	ServerGroupDelClient(ctx context.Context, groupID, clientDBID int) error

	RegisterServerEvents(ctx context.Context) error
	RegisterServerMessages(ctx context.Context) error
	RegisterChannelEvents(ctx context.Context, channelID int) error
	RegisterChannelMessages(ctx context.Context) error
	RegisterPrivateMessages(ctx context.Context) error

	StartKeepalive(interval time.Duration)
	NextEvent(ctx context.Context) (query.Event, error)
}

var _ QueryClient = (*query.Conn)(nil)

// Status is a point-in-time summary for the control CLI.
type Status struct {
	Running       bool      `json:"running"`
	Nickname      string    `json:"nickname"`
	HomeChannelID int       `json:"home_channel_id"`
	ClientCount   int       `json:"client_count"`
	StartedAt     time.Time `json:"started_at"`
}

// Bot is the automation agent. Construct with New, drive with Run.
type Bot struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	profile   profile.Service
	newClient func() QueryClient
	roster    *Roster

	mu             sync.Mutex
	client         QueryClient
	running        bool
	startedAt      time.Time
	clientID       int
	homeChannelID  int
	guestGroupID   int
	regularGroupID int
}

// New assembles a bot. Each Run obtains a fresh connection from newClient;
// the profile service may be nil when disabled in configuration.
func New(cfg *config.Config, logger *slog.Logger, st *store.Store, svc profile.Service, newClient func() QueryClient) *Bot {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bot{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "bot"),
		store:     st,
		profile:   svc,
		newClient: newClient,
		roster:    NewRoster(),
	}
}

// conn returns the connection of the current run.
func (b *Bot) conn() QueryClient {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// Roster exposes the live client roster.
func (b *Bot) Roster() *Roster {
	return b.roster
}

// Status reports the bot's current state.
func (b *Bot) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Running:       b.running,
		Nickname:      b.cfg.Server.Nickname,
		HomeChannelID: b.homeChannelID,
		ClientCount:   b.roster.Len(),
		StartedAt:     b.startedAt,
	}
}

// Say broadcasts a server-wide text message.
func (b *Bot) Say(ctx context.Context, message string) error {
	client := b.conn()
	if client == nil {
		return errors.New("bot is not connected")
	}
	return client.SendTextMessage(ctx, query.TargetModeServer, 0, message)
}

// Run executes the startup sequence and then consumes the event stream until
// the context is canceled or the connection is lost.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.client = b.newClient()
	b.mu.Unlock()

	if err := b.startup(ctx); err != nil {
		_ = b.client.Close()
		return err
	}

	b.mu.Lock()
	b.running = true
	b.startedAt = time.Now()
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		_ = b.client.Close()
	}()

	b.logger.Info("bot online",
		logging.String("nickname", b.cfg.Server.Nickname),
		logging.Int("clients", b.roster.Len()))

	// Clients connected before the bot get reconciled once up front; later
	// changes arrive as enter events.
	b.SyncRegulars(ctx)

	for {
		event, err := b.client.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, query.ErrClosed) {
				b.logger.Info("event stream ended")
				return nil
			}
			return fmt.Errorf("next event: %w", err)
		}
		b.handleEvent(ctx, event)
	}
}

func (b *Bot) startup(ctx context.Context) error {
	if err := b.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := b.client.Login(ctx, b.cfg.Server.Username, b.cfg.Server.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := b.client.Use(ctx, b.cfg.Server.VirtualServer); err != nil {
		return fmt.Errorf("select server: %w", err)
	}

	if err := b.client.ClientUpdate(ctx, map[string]string{"client_nickname": b.cfg.Server.Nickname}); err != nil {
		var qerr *query.QueryError
		if errors.As(err, &qerr) && qerr.Code == query.CodeNicknameInUse {
			b.logger.Warn("nickname already in use, keeping assigned name",
				logging.String("nickname", b.cfg.Server.Nickname))
		} else {
			return fmt.Errorf("set nickname: %w", err)
		}
	}

	identity, err := b.client.Whoami(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	b.mu.Lock()
	b.clientID = mapInt(identity, "client_id")
	b.mu.Unlock()

	if err := b.resolveGroups(ctx); err != nil {
		return err
	}
	if err := b.moveHome(ctx); err != nil {
		return err
	}
	if err := b.seedRoster(ctx); err != nil {
		return err
	}
	if err := b.registerEvents(ctx); err != nil {
		return err
	}

	b.client.StartKeepalive(b.cfg.KeepaliveInterval())
	return nil
}

// resolveGroups maps the configured guest and regular group names to ids.
// A missing group disables the behavior that depends on it.
func (b *Bot) resolveGroups(ctx context.Context) error {
	groups, err := b.client.ServerGroupList(ctx)
	if err != nil {
		return fmt.Errorf("server group list: %w", err)
	}

	guest, regular := 0, 0
	for _, group := range groups {
		name := group["name"]
		id := mapInt(group, "sgid")
		if foldEqual(name, b.cfg.Groups.Guest) {
			guest = id
		}
		if foldEqual(name, b.cfg.Groups.Regular) {
			regular = id
		}
	}

	if guest == 0 {
		b.logger.Warn("guest group not found", logging.String("group", b.cfg.Groups.Guest))
	}
	if regular == 0 {
		b.logger.Warn("regular group not found", logging.String("group", b.cfg.Groups.Regular))
	}

	b.mu.Lock()
	b.guestGroupID = guest
	b.regularGroupID = regular
	b.mu.Unlock()
	return nil
}

// moveHome finds the configured home channel (matched caselessly) and moves
// the bot into it. An unknown channel is logged, not fatal.
func (b *Bot) moveHome(ctx context.Context) error {
	pattern := b.cfg.Server.DefaultChannel
	if pattern == "" {
		return nil
	}

	channels, err := b.client.ChannelFind(ctx, pattern)
	if err != nil {
		var qerr *query.QueryError
		if errors.As(err, &qerr) && qerr.Code == query.CodeDatabaseEmptyResult {
			b.logger.Warn("home channel not found", logging.String("channel", pattern))
			return nil
		}
		return fmt.Errorf("find channel: %w", err)
	}

	channelID := 0
	for _, channel := range channels {
		if foldEqual(channel["channel_name"], pattern) {
			channelID = mapInt(channel, "cid")
			break
		}
	}
	if channelID == 0 && len(channels) > 0 {
		channelID = mapInt(channels[0], "cid")
	}
	if channelID <= 0 {
		b.logger.Warn("home channel not found", logging.String("channel", pattern))
		return nil
	}

	b.mu.Lock()
	clientID := b.clientID
	b.homeChannelID = channelID
	b.mu.Unlock()

	if err := b.client.ClientMove(ctx, channelID, clientID); err != nil {
		var qerr *query.QueryError
		if errors.As(err, &qerr) {
			// Already in the channel or insufficient permission; stay put.
			b.logger.Warn("move to home channel failed", logging.Error(err))
			return nil
		}
		return fmt.Errorf("move to home channel: %w", err)
	}
	return nil
}

// seedRoster primes the roster from a full client listing so that clients
// connected before the bot are tracked too.
func (b *Bot) seedRoster(ctx context.Context) error {
	records, err := b.client.ClientList(ctx, "uid", "groups")
	if err != nil {
		return fmt.Errorf("client list: %w", err)
	}
	for _, record := range records {
		// client_type 1 marks query clients, including the bot itself.
		if record["client_type"] == "1" {
			continue
		}
		b.roster.Upsert(Client{
			ID:           mapInt(record, "clid"),
			Name:         record["client_nickname"],
			UID:          record["client_unique_identifier"],
			DBID:         mapInt(record, "client_database_id"),
			ChannelID:    mapInt(record, "cid"),
			ServerGroups: parseGroupList(record["client_servergroups"]),
		})
	}
	return nil
}

func (b *Bot) registerEvents(ctx context.Context) error {
	steps := []struct {
		name string
		call func() error
	}{
		{"server", func() error { return b.client.RegisterServerEvents(ctx) }},
		{"textserver", func() error { return b.client.RegisterServerMessages(ctx) }},
		{"textchannel", func() error { return b.client.RegisterChannelMessages(ctx) }},
		{"textprivate", func() error { return b.client.RegisterPrivateMessages(ctx) }},
	}
	b.mu.Lock()
	home := b.homeChannelID
	b.mu.Unlock()
	if home > 0 {
		steps = append(steps, struct {
			name string
			call func() error
		}{"channel", func() error { return b.client.RegisterChannelEvents(ctx, home) }})
	}

	for _, step := range steps {
		if err := step.call(); err != nil {
			return fmt.Errorf("register %s events: %w", step.name, err)
		}
	}
	return nil
}

func foldEqual(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

func mapInt(record map[string]string, key string) int {
	value, err := strconv.Atoi(record[key])
	if err != nil {
		return -1
	}
	return value
}
