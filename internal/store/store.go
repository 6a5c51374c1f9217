package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"doorman/internal/config"
)

// TokenTTL is how long a minted link token stays redeemable.
const TokenTTL = 10 * time.Minute

// Message keys understood by the bot.
const (
	MessageGuestWelcome = "guest_welcome"
	MessageLinkPrompt   = "link_prompt"
)

var defaultMessages = map[string]string{
	MessageGuestWelcome: "Welcome! Type !link in this chat to connect your member account.",
	MessageLinkPrompt:   "Your one-time link token is %s. It expires in 10 minutes.",
}

// ErrTokenNotFound indicates a link token that does not exist or has expired.
var ErrTokenNotFound = errors.New("link token not found or expired")

// Account is a voice identity linked to a member account.
type Account struct {
	VoiceUID string
	UserID   int64
	GameID   string
	LinkedAt time.Time
}

// Store manages doorman persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	// now is swapped in tests to control token expiry.
	now func() time.Time
}

// Open initializes or connects to the doorman database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Account returns the linked account for a voice identity, or nil when the
// identity is not linked.
func (s *Store) Account(ctx context.Context, voiceUID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT voice_uid, user_id, game_id, linked_at FROM accounts WHERE voice_uid = ?", voiceUID)

	var (
		acct     Account
		linkedAt string
	)
	if err := row.Scan(&acct.VoiceUID, &acct.UserID, &acct.GameID, &linkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	acct.LinkedAt = parseTime(linkedAt)
	return &acct, nil
}

// Accounts returns every linked account, ordered by voice identity.
func (s *Store) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT voice_uid, user_id, game_id, linked_at FROM accounts ORDER BY voice_uid")
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var (
			acct     Account
			linkedAt string
		)
		if err := rows.Scan(&acct.VoiceUID, &acct.UserID, &acct.GameID, &linkedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acct.LinkedAt = parseTime(linkedAt)
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// LinkAccount records a voice identity as linked to a member account,
// replacing any previous link and revoking the identity's outstanding tokens.
func (s *Store) LinkAccount(ctx context.Context, voiceUID string, userID int64, gameID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (voice_uid, user_id, game_id, linked_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(voice_uid) DO UPDATE SET user_id = excluded.user_id,
		 game_id = excluded.game_id, linked_at = excluded.linked_at`,
		voiceUID, userID, gameID, formatTime(s.now())); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM link_tokens WHERE voice_uid = ?", voiceUID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit link: %w", err)
	}
	return nil
}

// UnlinkAccount removes the link for a voice identity. Removing an identity
// that was never linked is not an error.
func (s *Store) UnlinkAccount(ctx context.Context, voiceUID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM accounts WHERE voice_uid = ?", voiceUID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// CreateLinkToken mints a one-time link token for a voice identity. Previous
// tokens for the same identity are revoked and expired tokens are pruned, so
// at most one valid token exists per identity.
func (s *Store) CreateLinkToken(ctx context.Context, voiceUID string) (string, error) {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin token tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM link_tokens WHERE voice_uid = ? OR created_at < ?",
		voiceUID, formatTime(now.Add(-TokenTTL))); err != nil {
		return "", fmt.Errorf("prune tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO link_tokens (token, voice_uid, created_at) VALUES (?, ?, ?)",
		token, voiceUID, formatTime(now)); err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit token: %w", err)
	}
	return token, nil
}

// RedeemLinkToken consumes a token and links the identity that minted it.
// Expired or unknown tokens return ErrTokenNotFound.
func (s *Store) RedeemLinkToken(ctx context.Context, token string, userID int64, gameID string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT voice_uid, created_at FROM link_tokens WHERE token = ?", token)

	var (
		voiceUID  string
		createdAt string
	)
	if err := row.Scan(&voiceUID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("query token: %w", err)
	}

	if s.now().Sub(parseTime(createdAt)) > TokenTTL {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM link_tokens WHERE token = ?", token)
		return "", ErrTokenNotFound
	}

	if err := s.LinkAccount(ctx, voiceUID, userID, gameID); err != nil {
		return "", err
	}
	return voiceUID, nil
}

// Message returns the template body for a message key. Unknown keys return
// the empty string.
func (s *Store) Message(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT body FROM messages WHERE message_key = ?", key)

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query message: %w", err)
	}
	return body, nil
}

// SetMessage replaces the template body for a message key.
func (s *Store) SetMessage(ctx context.Context, key, body string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_key, body) VALUES (?, ?)
		 ON CONFLICT(message_key) DO UPDATE SET body = excluded.body`,
		key, body); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
