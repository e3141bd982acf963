package smtp_test

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/astromail/verifier/internal/smtp"
)

// generateTestCert produces a self-signed ECDSA certificate for driving a
// real TLS handshake in tests. The probe's InsecureSkipVerify default
// means the client never checks it against a CA, so a throwaway
// self-signed leaf is sufficient.
func generateTestCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "mx.example.com"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("key pair: %v", err)
	}
	return cert
}

// bufferedServerConn lets the TLS handshake continue reading through a
// bufio.Reader that may already hold bytes consumed from the plaintext
// connection while parsing the STARTTLS command line.
type bufferedServerConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedServerConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// TestProbe_STARTTLSUpgradesConnectionAndResendsEHLO drives a real TLS
// handshake over a net.Pipe-backed session: the server advertises
// STARTTLS on a non-final EHLO continuation line, the client upgrades,
// and the conversation after the upgrade must happen entirely inside the
// encrypted channel, including a mandatory re-sent EHLO.
func TestProbe_STARTTLSUpgradesConnectionAndResendsEHLO(t *testing.T) {
	cert := generateTestCert(t)
	ehloSeenOverTLS := make(chan bool, 1)

	dial := func(_, _ string, _ time.Duration) (net.Conn, error) {
		client, server := net.Pipe()
		go runSTARTTLSServer(server, cert, ehloSeenOverTLS)
		return client, nil
	}

	p := smtp.New(testConfig(dial), nil)

	valid, catchAll := p.Probe(context.Background(), "example.com", "jane", mxHosts("mx.example.com"))

	assert.True(t, valid)
	assert.False(t, catchAll)

	select {
	case seen := <-ehloSeenOverTLS:
		assert.True(t, seen, "EHLO must be re-sent after the TLS upgrade")
	default:
		t.Fatal("server never reached the post-handshake EHLO check")
	}
}

func runSTARTTLSServer(server net.Conn, cert tls.Certificate, ehloSeenOverTLS chan<- bool) {
	defer func() { _ = server.Close() }()

	plain := bufio.NewReader(server)
	_, _ = fmt.Fprintf(server, "220 mx.example.com ESMTP\r\n")

	line, err := plain.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "EHLO") {
		return
	}
	// STARTTLS advertised on a non-final continuation line, not the last.
	_, _ = fmt.Fprintf(server, "250-mx.example.com Hello\r\n250-STARTTLS\r\n250 SIZE 10485760\r\n")

	line, err = plain.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "STARTTLS") {
		return
	}
	_, _ = fmt.Fprintf(server, "220 Ready to start TLS\r\n")

	tlsConn := tls.Server(&bufferedServerConn{Conn: server, r: plain}, &tls.Config{
		Certificates: []tls.Certificate{cert},
	})
	if err := tlsConn.Handshake(); err != nil {
		ehloSeenOverTLS <- false
		return
	}
	defer func() { _ = tlsConn.Close() }()

	secure := bufio.NewReader(tlsConn)

	line, err = secure.ReadString('\n')
	if err != nil {
		ehloSeenOverTLS <- false
		return
	}
	ehloSeenOverTLS <- strings.HasPrefix(line, "EHLO")
	_, _ = fmt.Fprintf(tlsConn, "250 mx.example.com\r\n")

	for {
		line, err = secure.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(cmd, "MAIL FROM"):
			_, _ = fmt.Fprintf(tlsConn, "250 OK\r\n")
		case strings.Contains(cmd, "gibberishasdfasdf"):
			_, _ = fmt.Fprintf(tlsConn, "550 No such user\r\n")
		case strings.HasPrefix(cmd, "RCPT TO"):
			_, _ = fmt.Fprintf(tlsConn, "250 OK\r\n")
		case strings.HasPrefix(cmd, "QUIT"):
			_, _ = fmt.Fprintf(tlsConn, "221 Bye\r\n")
			return
		default:
			_, _ = fmt.Fprintf(tlsConn, "500 unrecognized\r\n")
		}
	}
}
