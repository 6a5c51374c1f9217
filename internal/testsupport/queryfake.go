package testsupport

import (
	"context"
	"sync"
	"time"

	"doorman/internal/query"
)

// SentMessage records one text message pushed through the fake connection.
type SentMessage struct {
	Mode    query.TargetMode
	Target  int
	Message string
}

// FakeQuery is a canned query connection for daemon and IPC tests. It
// answers the bot's startup sequence with a small fixed server and delivers
// events pushed to Events.
type FakeQuery struct {
	mu   sync.Mutex
	sent []SentMessage

	// Events feeds NextEvent; close it to end the stream.
	Events chan query.Event
}

// NewFakeQuery returns a fake connection with an empty server.
func NewFakeQuery() *FakeQuery {
	return &FakeQuery{Events: make(chan query.Event, 16)}
}

// Sent returns a copy of the recorded outbound messages.
func (f *FakeQuery) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *FakeQuery) Connect(context.Context) error { return nil }
func (f *FakeQuery) Close() error                  { return nil }

func (f *FakeQuery) Login(context.Context, string, string) error { return nil }
func (f *FakeQuery) Use(context.Context, int) error              { return nil }

func (f *FakeQuery) Whoami(context.Context) (map[string]string, error) {
	return map[string]string{"client_id": "1"}, nil
}

func (f *FakeQuery) ClientList(context.Context, ...string) ([]map[string]string, error) {
	return nil, nil
}

func (f *FakeQuery) ChannelFind(context.Context, string) ([]map[string]string, error) {
	return []map[string]string{{"cid": "7", "channel_name": "Lobby"}}, nil
}

func (f *FakeQuery) ServerGroupList(context.Context) ([]map[string]string, error) {
	return []map[string]string{
		{"sgid": "5", "name": "Guest"},
		{"sgid": "6", "name": "Regular"},
	}, nil
}

func (f *FakeQuery) ClientMove(context.Context, int, int) error { return nil }

func (f *FakeQuery) SendTextMessage(_ context.Context, mode query.TargetMode, target int, message string) error {
	f.mu.Lock()
	f.sent = append(f.sent, SentMessage{Mode: mode, Target: target, Message: message})
	f.mu.Unlock()
	return nil
}

func (f *FakeQuery) ClientUpdate(context.Context, map[string]string) error { return nil }
func (f *FakeQuery) ServerGroupAddClient(context.Context, int, int) error  { return nil }
func (f *FakeQuery) ServerGroupDelClient(context.Context, int, int) error  { return nil }

func (f *FakeQuery) RegisterServerEvents(context.Context) error      { return nil }
func (f *FakeQuery) RegisterServerMessages(context.Context) error    { return nil }
func (f *FakeQuery) RegisterChannelEvents(context.Context, int) error { return nil }
func (f *FakeQuery) RegisterChannelMessages(context.Context) error   { return nil }
func (f *FakeQuery) RegisterPrivateMessages(context.Context) error   { return nil }

func (f *FakeQuery) StartKeepalive(time.Duration) {}

func (f *FakeQuery) NextEvent(ctx context.Context) (query.Event, error) {
	select {
	case event, ok := <-f.Events:
		if !ok {
			return nil, query.ErrClosed
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
