package dnsprobe_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/astromail/verifier/internal/dnsprobe"
)

type mockResolver struct {
	mx     []*net.MX
	mxErr  error
	ip4    []net.IP
	ip4Err error
	ip6    []net.IP
	ip6Err error

	mxCalls  atomic.Int64
	ipCalls  atomic.Int64
}

func (m *mockResolver) LookupMX(_ context.Context, _ string) ([]*net.MX, error) {
	m.mxCalls.Add(1)
	return m.mx, m.mxErr
}

func (m *mockResolver) LookupIP(_ context.Context, network, _ string) ([]net.IP, error) {
	m.ipCalls.Add(1)
	if network == "ip4" {
		return m.ip4, m.ip4Err
	}
	return m.ip6, m.ip6Err
}

func testConfig() dnsprobe.Config {
	cfg := dnsprobe.DefaultConfig()
	cfg.LookupTimeout = time.Second
	cfg.ExistsRetryMinWait = time.Millisecond
	cfg.ExistsRetryMaxWait = 2 * time.Millisecond
	return cfg
}

func TestExists_PositiveOnA(t *testing.T) {
	r := &mockResolver{ip4: []net.IP{net.ParseIP("1.2.3.4")}}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	assert.True(t, p.Exists(context.Background(), "example.com"))
}

func TestExists_FallsBackToAAAA(t *testing.T) {
	r := &mockResolver{
		ip4Err: &net.DNSError{Err: "no such host", IsNotFound: true},
		ip6:    []net.IP{net.ParseIP("::1")},
	}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	assert.True(t, p.Exists(context.Background(), "example.com"))
}

func TestExists_NXDOMAINIsDecisiveNegative(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", IsNotFound: true}
	r := &mockResolver{ip4Err: notFound, ip6Err: notFound}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	assert.False(t, p.Exists(context.Background(), "nowhere.invalid"))
}

func TestExists_CachesResult(t *testing.T) {
	r := &mockResolver{ip4: []net.IP{net.ParseIP("1.2.3.4")}}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	p.Exists(context.Background(), "example.com")
	p.Exists(context.Background(), "example.com")

	assert.Equal(t, int64(1), r.ipCalls.Load())
}

func TestHasMX_PositiveFromMXRecords(t *testing.T) {
	r := &mockResolver{mx: []*net.MX{{Host: "mx2.example.com.", Pref: 20}, {Host: "mx1.example.com.", Pref: 10}}}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	assert.True(t, p.HasMX(context.Background(), "example.com"))

	hosts, err := p.ResolveMX(context.Background(), "example.com")
	assert.NoError(t, err)
	assert.Len(t, hosts, 2)
	assert.Equal(t, "mx1.example.com", hosts[0].Exchange)
	assert.Equal(t, uint16(10), hosts[0].Priority)
}

func TestHasMX_FallsBackToAWhenNoMX(t *testing.T) {
	r := &mockResolver{
		mxErr: &net.DNSError{Err: "no such host", IsNotFound: true},
		ip4:   []net.IP{net.ParseIP("1.2.3.4")},
	}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	assert.True(t, p.HasMX(context.Background(), "example.com"))
}

func TestHasMX_NoMXAndNoA(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", IsNotFound: true}
	r := &mockResolver{mxErr: notFound, ip4Err: notFound, ip6Err: notFound}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	assert.False(t, p.HasMX(context.Background(), "nowhere.invalid"))
}

func TestResolveMX_CachesAcrossCalls(t *testing.T) {
	r := &mockResolver{mx: []*net.MX{{Host: "mx.example.com.", Pref: 10}}}
	p := dnsprobe.NewWithResolver(testConfig(), nil, r)

	_, _ = p.ResolveMX(context.Background(), "example.com")
	_, _ = p.ResolveMX(context.Background(), "example.com")

	assert.Equal(t, int64(1), r.mxCalls.Load())
}
