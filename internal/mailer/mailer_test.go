package mailer

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wichananm65/medicare-backend/internal/config"
)

// fakeSMTP is a minimal plaintext SMTP server that accepts AUTH PLAIN and
// records every message it receives.
type fakeSMTP struct {
	ln         net.Listener
	rejectAuth bool

	mu       sync.Mutex
	messages []recorded
}

type recorded struct {
	from string
	to   []string
	data string
}

func startFakeSMTP(t *testing.T, rejectAuth bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln, rejectAuth: rejectAuth}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) received() []recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recorded(nil), s.messages...)
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP fake")
	var current recorded
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			reply("250-localhost")
			reply("250 AUTH PLAIN")
		case "AUTH":
			if s.rejectAuth {
				reply("535 5.7.8 authentication failed")
			} else {
				reply("235 2.7.0 accepted")
			}
		case "MAIL":
			current = recorded{from: strings.Trim(strings.TrimPrefix(line, "MAIL FROM:"), "<>")}
			reply("250 OK")
		case "RCPT":
			current.to = append(current.to, strings.Trim(strings.TrimPrefix(line, "RCPT TO:"), "<>"))
			reply("250 OK")
		case "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var data strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				data.WriteString(dl)
			}
			current.data = data.String()
			s.mu.Lock()
			s.messages = append(s.messages, current)
			s.mu.Unlock()
			reply("250 OK queued")
		case "NOOP", "RSET":
			reply("250 OK")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}

func testConfig(port int) config.Mail {
	return config.Mail{
		Host:     "127.0.0.1",
		Port:     port,
		Username: "clinic@example.com",
		Password: "secret",
		From:     "Medicare <clinic@example.com>",
		Timeout:  5 * time.Second,
	}
}

func TestSend_DeliversMessage(t *testing.T) {
	srv := startFakeSMTP(t, false)
	m := New(testConfig(srv.port()), zerolog.Nop())

	receipt, err := m.Send(context.Background(), Message{
		To:      []string{"jane@example.com"},
		Subject: "Your Medicare account credentials",
		Body:    "Hello Jane\nPassword: abc\n",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if receipt.MessageID == "" || !strings.HasSuffix(receipt.MessageID, "@example.com>") {
		t.Fatalf("unexpected message id %q", receipt.MessageID)
	}
	if len(receipt.Recipients) != 1 || receipt.Recipients[0] != "jane@example.com" {
		t.Fatalf("unexpected recipients %v", receipt.Recipients)
	}

	msgs := srv.received()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message on the server, got %d", len(msgs))
	}
	got := msgs[0]
	if got.from != "clinic@example.com" {
		t.Fatalf("unexpected envelope sender %q", got.from)
	}
	if len(got.to) != 1 || got.to[0] != "jane@example.com" {
		t.Fatalf("unexpected envelope recipients %v", got.to)
	}
	for _, want := range []string{
		"From: Medicare <clinic@example.com>\r\n",
		"To: jane@example.com\r\n",
		"Subject: Your Medicare account credentials\r\n",
		"Message-ID: " + receipt.MessageID + "\r\n",
		"Password: abc\r\n",
	} {
		if !strings.Contains(got.data, want) {
			t.Fatalf("message data missing %q:\n%s", want, got.data)
		}
	}
}

func TestSend_NotConfigured(t *testing.T) {
	cfg := testConfig(2525)
	cfg.Password = ""
	m := New(cfg, zerolog.Nop())
	if m.Configured() {
		t.Fatalf("mailer without password must not be configured")
	}
	if _, err := m.Send(context.Background(), Message{To: []string{"a@example.com"}}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSend_AuthRejected(t *testing.T) {
	srv := startFakeSMTP(t, true)
	m := New(testConfig(srv.port()), zerolog.Nop())

	_, err := m.Send(context.Background(), Message{To: []string{"jane@example.com"}, Subject: "x", Body: "y"})
	if err == nil {
		t.Fatalf("expected auth failure")
	}
	if len(srv.received()) != 0 {
		t.Fatalf("no message should be recorded after failed auth")
	}
}

func TestVerify(t *testing.T) {
	srv := startFakeSMTP(t, false)
	if !New(testConfig(srv.port()), zerolog.Nop()).Verify(context.Background()) {
		t.Fatalf("expected verify to succeed against a reachable server")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedPort, _ := strconv.Atoi(strings.Split(ln.Addr().String(), ":")[1])
	ln.Close()
	if New(testConfig(closedPort), zerolog.Nop()).Verify(context.Background()) {
		t.Fatalf("expected verify to fail against a closed port")
	}
}
