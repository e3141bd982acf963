package smtp

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/astromail/verifier/types"
)

// Session is a single SMTP conversation, owned by one probe call. It is
// created on connect, mutated only by the owning probe, and must be
// closed on every exit path (decisive reply, protocol violation,
// timeout, transport error) to guarantee socket cleanup.
type Session struct {
	conn           net.Conn
	reader         *bufio.Reader
	writer         *bufio.Writer
	secure         bool
	commandTimeout time.Duration
}

func newSession(conn net.Conn, commandTimeout time.Duration, secure bool) *Session {
	return &Session{
		conn:           conn,
		reader:         bufio.NewReader(conn),
		writer:         bufio.NewWriter(conn),
		secure:         secure,
		commandTimeout: commandTimeout,
	}
}

// Secure reports whether the session is currently running over TLS.
func (s *Session) Secure() bool { return s.secure }

// Send writes one command line. cmd must already include the trailing
// \r\n.
func (s *Session) Send(cmd string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.commandTimeout)); err != nil {
		return err
	}
	if _, err := s.writer.WriteString(cmd); err != nil {
		return err
	}
	return s.writer.Flush()
}

// ReadReply blocks until one complete (possibly multi-line) SMTP reply
// has been read, or the command deadline expires.
func (s *Session) ReadReply() (types.SmtpReply, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.commandTimeout)); err != nil {
		return types.SmtpReply{}, err
	}
	return readReply(s.reader)
}

// Command sends cmd and returns the reply that follows it. Command
// issuance and reply consumption are strictly interleaved; there is no
// pipelining.
func (s *Session) Command(cmd string) (types.SmtpReply, error) {
	if err := s.Send(cmd); err != nil {
		return types.SmtpReply{}, err
	}
	return s.ReadReply()
}

// Upgrade performs a STARTTLS handshake in place. Any bytes already
// buffered in s.reader (read from the plaintext socket but not yet
// consumed) belong to the secured channel and are preserved by routing
// the handshake through the existing buffered reader rather than the
// raw connection.
func (s *Session) Upgrade(ctx context.Context, sni string, insecureSkipVerify bool) error {
	bc := &bufferedConn{Conn: s.conn, r: s.reader}
	tlsConn := tls.Client(bc, &tls.Config{
		ServerName:         sni,
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // MX certs are frequently self-signed or expired
	})

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return err
	}

	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.secure = true
	return nil
}

// Quit sends QUIT best-effort; the result is never surfaced, since
// termination proceeds regardless of whether the server acknowledges it.
func (s *Session) Quit() {
	_ = s.conn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = s.writer.WriteString("QUIT\r\n")
	_ = s.writer.Flush()
}

// Close hard-closes the underlying socket. Safe to call after Quit.
func (s *Session) Close() error {
	return s.conn.Close()
}

// bufferedConn lets a TLS handshake read through a bufio.Reader that may
// already hold bytes pulled from the plaintext connection, so nothing
// read ahead of the handshake is lost.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}
