package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"doorman/internal/logging"
)

// State describes the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// DefaultTimeout bounds connect, greeting reads, and command responses when
// Options leaves Timeout unset.
const DefaultTimeout = 10 * time.Second

// DefaultKeepaliveInterval is the default cadence of the keepalive command.
const DefaultKeepaliveInterval = 5 * time.Minute

// Options configures a Conn.
type Options struct {
	Host    string
	Port    int
	Timeout time.Duration
	Logger  *slog.Logger
}

// Conn is one persistent ServerQuery connection. It owns the socket: a single
// receive goroutine is the only reader, and the command lock holder is the
// only writer. At most one command is in flight at any instant.
type Conn struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger

	netConn net.Conn
	reader  *bufio.Reader

	state atomic.Int32

	// cmdMu serializes commands; holding it grants exclusive use of the
	// response buffer below and of writes to the socket.
	cmdMu sync.Mutex

	// respMu guards the per-command correlation cell. The receive loop is
	// its single writer, the current command its single reader.
	respMu    sync.Mutex
	respLines []string
	respErr   *QueryError
	respDone  bool
	respLost  bool
	respReady chan struct{}

	// evMu guards the unbounded event queue so enqueueing never blocks on
	// a slow consumer.
	evMu   sync.Mutex
	events []Event
	evSig  chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a Conn from options. Connect must be called before use.
func New(opts Options) *Conn {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Conn{
		addr:    net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		timeout: timeout,
		logger:  logger.With(logging.String(logging.FieldComponent, "query")),
		evSig:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// State reports the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Connected reports whether the connection is usable for commands.
func (c *Conn) Connected() bool {
	return c.State() == StateConnected
}

// Connect opens the socket, discards the two greeting lines the server sends,
// and starts the receive loop. Refusal and timeout surface as ErrConnection
// and ErrTimeout respectively, leaving the Conn disconnected.
func (c *Conn) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("%w: connect from state %s", ErrConnection, c.State())
	}

	dialer := net.Dialer{Timeout: c.timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return dialError(c.addr, err)
	}

	c.netConn = netConn
	c.reader = bufio.NewReader(netConn)

	// Banner and welcome line, both discarded.
	deadline := time.Now().Add(c.timeout)
	for i := 0; i < 2; i++ {
		if err := netConn.SetReadDeadline(deadline); err != nil {
			c.abortConnect()
			return fmt.Errorf("%w: set deadline: %v", ErrConnection, err)
		}
		if _, err := c.readLine(); err != nil {
			c.abortConnect()
			if isTimeout(err) {
				return fmt.Errorf("%w: greeting from %s", ErrTimeout, c.addr)
			}
			return fmt.Errorf("%w: greeting from %s: %v", ErrConnection, c.addr, err)
		}
	}
	if err := netConn.SetReadDeadline(time.Time{}); err != nil {
		c.abortConnect()
		return fmt.Errorf("%w: clear deadline: %v", ErrConnection, err)
	}

	c.state.Store(int32(StateConnected))
	c.wg.Add(1)
	go c.receiveLoop()

	c.logger.Debug("connected", logging.String("addr", c.addr))
	return nil
}

func (c *Conn) abortConnect() {
	_ = c.netConn.Close()
	c.netConn = nil
	c.reader = nil
	c.state.Store(int32(StateDisconnected))
}

// Close cancels the background goroutines, awaits their termination, sends a
// best-effort quit, and releases the socket. It is safe to call more than
// once; the Conn cannot be reused afterwards.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.done)
		if c.netConn != nil {
			_ = c.netConn.SetWriteDeadline(time.Now().Add(time.Second))
			_, _ = c.netConn.Write([]byte("quit" + Terminator))
			// Closing the socket unblocks the receive loop's read.
			_ = c.netConn.Close()
		}
		c.wg.Wait()
		c.state.Store(int32(StateDisconnected))
		c.logger.Debug("closed", logging.String("addr", c.addr))
	})
	return nil
}

// readLine reads one line up to the \n\r terminator and strips it. Payload
// bytes never contain a raw CR because the codec escapes it, so CR only
// appears as the final terminator byte.
func (c *Conn) readLine() (string, error) {
	line, err := c.reader.ReadString('\r')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, Terminator), nil
}

// receiveLoop is the sole reader of the socket. It classifies every inbound
// line: notifications feed the event queue, the terminal error line fills the
// correlation cell, and anything else is a data line for the in-flight
// command.
func (c *Conn) receiveLoop() {
	defer c.wg.Done()
	for {
		line, err := c.readLine()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Error("connection lost in receive loop", logging.Error(err))
			c.state.Store(int32(StateDisconnected))
			c.failPending()
			return
		}

		switch {
		case strings.HasPrefix(line, NotifyPrefix):
			verb, rest, _ := strings.Cut(line, " ")
			event, ok := ParseEvent(verb, ParseLineToMap(rest))
			if !ok {
				c.logger.Warn("unknown event type", logging.String("event", verb))
				continue
			}
			c.enqueueEvent(event)

		case line == "error" || strings.HasPrefix(line, "error "):
			c.respMu.Lock()
			if !c.respDone {
				c.respErr = ParseErrorLine(line)
				c.respDone = true
				if c.respReady != nil {
					close(c.respReady)
				}
			}
			c.respMu.Unlock()

		default:
			c.respMu.Lock()
			if !c.respDone {
				c.respLines = append(c.respLines, line)
			}
			c.respMu.Unlock()
		}
	}
}

// failPending wakes a command waiting on a response after the stream died, so
// the caller gets a connection error instead of running out its timeout.
func (c *Conn) failPending() {
	c.respMu.Lock()
	if !c.respDone {
		c.respLost = true
		c.respDone = true
		if c.respReady != nil {
			close(c.respReady)
		}
	}
	c.respMu.Unlock()
}

func (c *Conn) enqueueEvent(event Event) {
	c.evMu.Lock()
	c.events = append(c.events, event)
	c.evMu.Unlock()
	select {
	case c.evSig <- struct{}{}:
	default:
	}
}

// NextEvent returns the next queued notification, waiting until one arrives,
// the context is canceled, or the connection closes. After Close it drains
// the remaining queue and then reports ErrClosed.
func (c *Conn) NextEvent(ctx context.Context) (Event, error) {
	for {
		c.evMu.Lock()
		if len(c.events) > 0 {
			event := c.events[0]
			c.events = c.events[1:]
			c.evMu.Unlock()
			return event, nil
		}
		c.evMu.Unlock()

		select {
		case <-c.evSig:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			c.evMu.Lock()
			empty := len(c.events) == 0
			c.evMu.Unlock()
			if empty {
				return nil, ErrClosed
			}
		}
	}
}

// Do sends one command and waits for its complete response: zero or more data
// lines followed by the terminal error line. A nonzero result id surfaces as
// *QueryError; a response that does not complete within the configured
// timeout surfaces as ErrTimeout and leaves the connection usable for the
// next command.
func (c *Conn) Do(ctx context.Context, cmd *Command) ([]string, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.State() != StateConnected {
		return nil, fmt.Errorf("%w: not connected", ErrConnection)
	}

	// Reset the correlation cell for this command. Anything left over from
	// an abandoned (timed out) predecessor is discarded here.
	c.respMu.Lock()
	c.respLines = nil
	c.respErr = nil
	c.respDone = false
	c.respLost = false
	c.respReady = make(chan struct{})
	ready := c.respReady
	c.respMu.Unlock()

	if _, err := c.netConn.Write(cmd.Bytes()); err != nil {
		c.state.Store(int32(StateDisconnected))
		return nil, fmt.Errorf("%w: write %s: %v", ErrConnection, cmd.Verb(), err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-ready:
	case <-timer.C:
		return nil, fmt.Errorf("%w: awaiting response to %s", ErrTimeout, cmd.Verb())
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}

	c.respMu.Lock()
	lines := c.respLines
	qerr := c.respErr
	lost := c.respLost
	c.respLines = nil
	c.respErr = nil
	c.respMu.Unlock()

	if lost {
		return nil, fmt.Errorf("%w: stream closed awaiting response to %s", ErrConnection, cmd.Verb())
	}
	if qerr != nil {
		return nil, qerr
	}
	return lines, nil
}

// Exec sends an arbitrary verb with flags and parameters and parses the
// response into record maps. Parameters render in sorted key order so the
// wire form is deterministic.
func (c *Conn) Exec(ctx context.Context, verb string, flags []string, params map[string]string) ([]map[string]string, error) {
	cmd := NewCommand(verb)
	for _, flag := range flags {
		cmd.Flag(flag)
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		cmd.String(key, params[key])
	}

	lines, err := c.Do(ctx, cmd)
	if err != nil {
		return nil, err
	}
	var records []map[string]string
	for _, line := range lines {
		records = append(records, ParseLineToList(line)...)
	}
	return records, nil
}

// ExecOne runs Exec and collapses the result to a single record map. It
// returns nil when the response carried no data lines.
func (c *Conn) ExecOne(ctx context.Context, verb string, flags []string, params map[string]string) (map[string]string, error) {
	records, err := c.Exec(ctx, verb, flags, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// StartKeepalive launches a background goroutine that issues a no-op
// introspection command at the given interval so the server does not drop an
// idle connection. Failures are logged and never tear down the session; the
// goroutine stops when the connection closes.
func (c *Conn) StartKeepalive(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				if _, err := c.Whoami(context.Background()); err != nil {
					if errors.Is(err, ErrClosed) {
						return
					}
					c.logger.Warn("keepalive failed", logging.Error(err))
				}
			}
		}
	}()
}

func dialError(addr string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: connect to %s", ErrTimeout, addr)
	}
	return fmt.Errorf("%w: connect to %s: %v", ErrConnection, addr, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
