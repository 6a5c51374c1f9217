package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"doorman/internal/logging"
	"doorman/internal/profile"
	"doorman/internal/query"
	"doorman/internal/store"
)

// Chat commands the bot answers over private message.
const (
	commandLink = "!link"
	commandHelp = "!help"
)

func (b *Bot) handleEvent(ctx context.Context, event query.Event) {
	switch ev := event.(type) {
	case *query.ClientEntered:
		b.handleEntered(ctx, ev)
	case *query.ClientLeft:
		b.roster.Remove(ev.ClientID)
	case *query.ClientMoved:
		b.roster.Move(ev.ClientID, ev.TargetChannelID)
	case *query.ClientMovedSelf:
		b.roster.Move(ev.ClientID, ev.TargetChannelID)
	case *query.TextMessage:
		b.handleTextMessage(ctx, ev)
	case *query.ChannelEdited, *query.ChannelDescriptionEdited, *query.ServerEdited:
		// Tracked for completeness; nothing to reconcile.
	default:
		b.logger.Debug("unhandled event", logging.Any("event", event.Raw()))
	}
}

func (b *Bot) handleEntered(ctx context.Context, ev *query.ClientEntered) {
	// Query clients (other bots, admin tools) never join the roster.
	if ev.Raw()["client_type"] == "1" {
		return
	}

	client := Client{
		ID:           ev.ClientID,
		Name:         ev.ClientName,
		UID:          ev.ClientUID,
		DBID:         ev.ClientDBID,
		ChannelID:    ev.TargetChannelID,
		ServerGroups: parseGroupList(ev.ServerGroups),
	}
	b.roster.Upsert(client)

	b.logger.Info("client entered",
		logging.String(logging.FieldClientUID, client.UID),
		logging.String("name", client.Name),
		logging.Int(logging.FieldClientID, client.ID))

	b.mu.Lock()
	guestGroup := b.guestGroupID
	b.mu.Unlock()

	if guestGroup > 0 && client.InGroup(guestGroup) {
		b.welcomeGuest(ctx, client)
	} else {
		b.promptLink(ctx, client)
	}
	b.syncRegular(ctx, client)
}

// welcomeGuest greets unlinked guests over private chat with the stored
// welcome template.
func (b *Bot) welcomeGuest(ctx context.Context, client Client) {
	account, err := b.store.Account(ctx, client.UID)
	if err != nil {
		b.logger.Error("account lookup failed", logging.Error(err))
		return
	}
	if account != nil {
		return
	}

	body, err := b.store.Message(ctx, store.MessageGuestWelcome)
	if err != nil {
		b.logger.Error("welcome template lookup failed", logging.Error(err))
		return
	}
	if body == "" {
		return
	}
	if err := b.client.SendTextMessage(ctx, query.TargetModePrivate, client.ID, body); err != nil {
		b.logger.Warn("guest welcome failed",
			logging.Int(logging.FieldClientID, client.ID), logging.Error(err))
	}
}

// promptLink nudges members who have no linked account yet. The prompt
// carries a freshly minted token so it can be redeemed right away.
func (b *Bot) promptLink(ctx context.Context, client Client) {
	if client.UID == "" {
		return
	}
	account, err := b.store.Account(ctx, client.UID)
	if err != nil {
		b.logger.Error("account lookup failed", logging.Error(err))
		return
	}
	if account != nil {
		return
	}

	token, err := b.store.CreateLinkToken(ctx, client.UID)
	if err != nil {
		b.logger.Error("mint link token failed", logging.Error(err))
		return
	}
	message, err := b.linkMessage(ctx, token)
	if err != nil {
		b.logger.Warn("link prompt unavailable", logging.Error(err))
		return
	}
	if err := b.client.SendTextMessage(ctx, query.TargetModePrivate, client.ID, message); err != nil {
		b.logger.Warn("link prompt failed",
			logging.Int(logging.FieldClientID, client.ID), logging.Error(err))
	}
}

// syncRegular reconciles the client's regular-group membership against the
// member-profile service.
func (b *Bot) syncRegular(ctx context.Context, client Client) {
	b.mu.Lock()
	regularGroup := b.regularGroupID
	b.mu.Unlock()

	if b.profile == nil || !b.cfg.Groups.Sync || regularGroup <= 0 {
		return
	}

	account, err := b.store.Account(ctx, client.UID)
	if err != nil {
		b.logger.Error("account lookup failed", logging.Error(err))
		return
	}
	if account == nil {
		return
	}

	member, err := b.profile.Member(ctx, account.UserID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			b.logger.Warn("linked member missing from profile service",
				logging.Int64("user_id", account.UserID))
			return
		}
		b.logger.Error("profile lookup failed", logging.Error(err))
		return
	}

	inGroup := client.InGroup(regularGroup)
	switch {
	case member.Regular && !inGroup:
		if err := b.client.ServerGroupAddClient(ctx, regularGroup, client.DBID); err != nil {
			b.logger.Warn("grant regular group failed", logging.Error(err))
			return
		}
		b.logger.Info("granted regular group",
			logging.String(logging.FieldClientUID, client.UID),
			logging.String("member", member.Username))
	case !member.Regular && inGroup:
		if err := b.client.ServerGroupDelClient(ctx, regularGroup, client.DBID); err != nil {
			b.logger.Warn("revoke regular group failed", logging.Error(err))
			return
		}
		b.logger.Info("revoked regular group",
			logging.String(logging.FieldClientUID, client.UID),
			logging.String("member", member.Username))
	}
}

// SyncRegulars runs the regular-group reconciliation for every tracked
// client. The control CLI triggers it on demand.
func (b *Bot) SyncRegulars(ctx context.Context) {
	for _, client := range b.roster.All() {
		b.syncRegular(ctx, client)
	}
}

func (b *Bot) handleTextMessage(ctx context.Context, ev *query.TextMessage) {
	b.mu.Lock()
	self := b.clientID
	b.mu.Unlock()
	if ev.InvokerID == self {
		return
	}
	if ev.TargetMode != query.TargetModePrivate {
		return
	}

	fields := strings.Fields(ev.Message)
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case commandLink:
		b.handleLinkCommand(ctx, ev)
	case commandHelp:
		b.reply(ctx, ev.InvokerID, "Commands: !link (connect your member account), !help")
	}
}

// handleLinkCommand mints a one-time token for the sender and replies with
// redemption instructions.
func (b *Bot) handleLinkCommand(ctx context.Context, ev *query.TextMessage) {
	if ev.InvokerUID == "" {
		b.reply(ctx, ev.InvokerID, "Cannot identify you, please reconnect and try again.")
		return
	}

	token, err := b.store.CreateLinkToken(ctx, ev.InvokerUID)
	if err != nil {
		b.logger.Error("mint link token failed", logging.Error(err))
		b.reply(ctx, ev.InvokerID, "Something went wrong, please try again later.")
		return
	}

	message, err := b.linkMessage(ctx, token)
	if err != nil {
		b.logger.Error("link instructions unavailable", logging.Error(err))
		return
	}

	b.logger.Info("issued link token",
		logging.String(logging.FieldClientUID, ev.InvokerUID),
		logging.String("name", ev.InvokerName))
	b.reply(ctx, ev.InvokerID, message)
}

// linkMessage renders the redemption instructions for a token, preferring the
// configured URL base over the stored template.
func (b *Bot) linkMessage(ctx context.Context, token string) (string, error) {
	if base := b.cfg.Messages.LinkURLBase; base != "" {
		return base + token, nil
	}
	template, err := b.store.Message(ctx, store.MessageLinkPrompt)
	if err != nil {
		return "", fmt.Errorf("link template lookup: %w", err)
	}
	if template == "" {
		return "", errors.New("link template missing")
	}
	return fmt.Sprintf(template, token), nil
}

func (b *Bot) reply(ctx context.Context, clientID int, message string) {
	if err := b.client.SendTextMessage(ctx, query.TargetModePrivate, clientID, message); err != nil {
		b.logger.Warn("reply failed",
			logging.Int(logging.FieldClientID, clientID), logging.Error(err))
	}
}
