package query_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"doorman/internal/query"
)

// startTestServer runs a scripted ServerQuery endpoint on a loopback port.
// The handler receives each full command line and a write function that
// appends the two-byte terminator to every line it sends.
func startTestServer(t *testing.T, handler func(line string, write func(lines ...string))) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var writeMu sync.Mutex
		write := func(lines ...string) {
			writeMu.Lock()
			defer writeMu.Unlock()
			for _, line := range lines {
				if _, err := conn.Write([]byte(line + "\n\r")); err != nil {
					return
				}
			}
		}
		write("TS3", "Welcome to the ServerQuery interface")

		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\r')
			if err != nil {
				return
			}
			line = strings.TrimSuffix(line, "\n\r")
			if line == "quit" {
				return
			}
			handler(line, write)
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func dialTestServer(t *testing.T, host string, port int, timeout time.Duration) *query.Conn {
	t.Helper()
	conn := query.New(query.Options{Host: host, Port: port, Timeout: timeout})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnectAndCommand(t *testing.T) {
	host, port := startTestServer(t, func(line string, write func(...string)) {
		if strings.HasPrefix(line, "whoami") {
			write("client_id=5 client_channel_id=2", "error id=0 msg=ok")
		}
	})

	conn := dialTestServer(t, host, port, 2*time.Second)
	if !conn.Connected() {
		t.Fatal("expected connected state after Connect")
	}

	info, err := conn.Whoami(context.Background())
	if err != nil {
		t.Fatalf("Whoami: %v", err)
	}
	if info["client_id"] != "5" || info["client_channel_id"] != "2" {
		t.Fatalf("unexpected whoami response: %#v", info)
	}
}

func TestConnectRefused(t *testing.T) {
	// Grab a free port and close the listener so nothing accepts on it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	conn := query.New(query.Options{Host: "127.0.0.1", Port: port, Timeout: time.Second})
	err = conn.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect failure")
	}
	if !errors.Is(err, query.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if conn.State() != query.StateDisconnected {
		t.Fatalf("state = %v, want disconnected", conn.State())
	}
}

func TestEventNeverAttributedToResponse(t *testing.T) {
	host, port := startTestServer(t, func(line string, write func(...string)) {
		if strings.HasPrefix(line, "clientlist") {
			// A notification interleaved between the command's data line
			// and its terminal line.
			write(
				"notifytextmessage targetmode=1 msg=hi invokerid=3 invokername=Sam invokeruid=uid-sam",
				"clid=1 client_nickname=One",
				"error id=0 msg=ok",
			)
		}
	})

	conn := dialTestServer(t, host, port, 2*time.Second)

	clients, err := conn.ClientList(context.Background())
	if err != nil {
		t.Fatalf("ClientList: %v", err)
	}
	if len(clients) != 1 || clients[0]["clid"] != "1" {
		t.Fatalf("response should contain only the data line, got %#v", clients)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	event, err := conn.NextEvent(ctx)
	if err != nil {
		t.Fatalf("NextEvent: %v", err)
	}
	msg, ok := event.(*query.TextMessage)
	if !ok {
		t.Fatalf("expected *TextMessage, got %T", event)
	}
	if msg.Message != "hi" || msg.InvokerID != 3 {
		t.Fatalf("unexpected event: %#v", msg)
	}
}

func TestQueryErrorSurfaced(t *testing.T) {
	host, port := startTestServer(t, func(line string, write func(...string)) {
		if strings.HasPrefix(line, "use") {
			write(`error id=1024 msg=invalid\sserverID`)
		}
	})

	conn := dialTestServer(t, host, port, 2*time.Second)

	err := conn.Use(context.Background(), 99)
	if err == nil {
		t.Fatal("expected query error")
	}
	var qerr *query.QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueryError, got %v", err)
	}
	if qerr.ID != 1024 || qerr.Message != "invalid serverID" || qerr.Code != query.CodeInvalidServerID {
		t.Fatalf("unexpected query error: %#v", qerr)
	}
}

func TestCommandTimeoutLeavesConnectionUsable(t *testing.T) {
	host, port := startTestServer(t, func(line string, write func(...string)) {
		switch {
		case strings.HasPrefix(line, "login"):
			// No terminal line; the client must time out.
		case strings.HasPrefix(line, "whoami"):
			write("client_id=9", "error id=0 msg=ok")
		}
	})

	conn := dialTestServer(t, host, port, 300*time.Millisecond)

	err := conn.Login(context.Background(), "root", "pw")
	if !errors.Is(err, query.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, query.ErrConnection) {
		t.Fatal("timeout should also satisfy ErrConnection")
	}

	info, err := conn.Whoami(context.Background())
	if err != nil {
		t.Fatalf("Whoami after timeout: %v", err)
	}
	if info["client_id"] != "9" {
		t.Fatalf("buffers not reset after timeout: %#v", info)
	}
}

func TestConcurrentCommandsCorrelate(t *testing.T) {
	host, port := startTestServer(t, func(line string, write func(...string)) {
		verb, _, _ := strings.Cut(line, " ")
		write("echo="+verb, "error id=0 msg=ok")
	})

	conn := dialTestServer(t, host, port, 2*time.Second)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verb := fmt.Sprintf("probe%d", i)
			record, err := conn.ExecOne(context.Background(), verb, nil, nil)
			if err != nil {
				errs[i] = err
				return
			}
			if record["echo"] != verb {
				errs[i] = fmt.Errorf("response for %s carried %q", verb, record["echo"])
			}
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
}

func TestUnsolicitedEventDelivery(t *testing.T) {
	var pushed atomic.Bool
	host, port := startTestServer(t, func(line string, write func(...string)) {
		if strings.HasPrefix(line, "servernotifyregister") {
			write("error id=0 msg=ok")
			if pushed.CompareAndSwap(false, true) {
				write("notifyclientleftview clid=5 cfid=2 ctid=0 reasonid=8")
			}
		}
	})

	conn := dialTestServer(t, host, port, 2*time.Second)

	if err := conn.RegisterServerEvents(context.Background()); err != nil {
		t.Fatalf("RegisterServerEvents: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	event, err := conn.NextEvent(ctx)
	if err != nil {
		t.Fatalf("NextEvent: %v", err)
	}
	left, ok := event.(*query.ClientLeft)
	if !ok {
		t.Fatalf("expected *ClientLeft, got %T", event)
	}
	if left.ClientID != 5 || left.ReasonID != 8 {
		t.Fatalf("unexpected event: %#v", left)
	}
}

func TestCloseEndsEventStreamAndCommands(t *testing.T) {
	host, port := startTestServer(t, func(line string, write func(...string)) {
		write("error id=0 msg=ok")
	})

	conn := dialTestServer(t, host, port, 2*time.Second)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := conn.NextEvent(context.Background()); !errors.Is(err, query.ErrClosed) {
		t.Fatalf("NextEvent after close = %v, want ErrClosed", err)
	}
	if _, err := conn.Whoami(context.Background()); !errors.Is(err, query.ErrConnection) {
		t.Fatalf("Whoami after close = %v, want connection error", err)
	}
	// Close is idempotent.
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestKeepaliveIssuesWhoami(t *testing.T) {
	var whoamis atomic.Int32
	host, port := startTestServer(t, func(line string, write func(...string)) {
		if strings.HasPrefix(line, "whoami") {
			whoamis.Add(1)
			write("client_id=1", "error id=0 msg=ok")
		}
	})

	conn := dialTestServer(t, host, port, 2*time.Second)
	conn.StartKeepalive(20 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for whoamis.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if whoamis.Load() == 0 {
		t.Fatal("keepalive never reached the server")
	}
}
