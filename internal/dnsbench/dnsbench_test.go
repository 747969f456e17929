package dnsbench

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBench(exchange exchangeFunc) *Bench {
	return &Bench{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		exchange: exchange,
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRunProbesEveryServer(t *testing.T) {
	var queried []string
	b := testBench(func(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
		queried = append(queried, addr)
		require.Len(t, m.Question, 1)
		assert.Equal(t, TestDomain, m.Question[0].Name)
		assert.Equal(t, dns.TypeA, m.Question[0].Qtype)
		return new(dns.Msg), 12345 * time.Microsecond, nil
	})

	results := b.Run()

	require.Len(t, results, 6)
	assert.Contains(t, queried, "8.8.8.8:53")
	assert.Contains(t, queried, "1.1.1.1:53")

	probe, ok := results["Google (8.8.8.8)"]
	require.True(t, ok)
	assert.Equal(t, "Success", probe.Status)
	assert.Equal(t, 12.35, probe.LatencyMs)

	_, ok = results["Cloudflare (1.1.1.1)"]
	assert.True(t, ok)
}

func TestRunTimeoutStatus(t *testing.T) {
	b := testBench(func(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
		return nil, 0, timeoutErr{}
	})

	results := b.Run()

	probe := results["Quad9 (9.9.9.9)"]
	assert.Equal(t, float64(-1), probe.LatencyMs)
	assert.Equal(t, "Timeout (2s)", probe.Status)
}

func TestRunDialFailureStatus(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	b := testBench(func(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
		return nil, 0, dialErr
	})

	results := b.Run()

	probe := results["Google (8.8.8.8)"]
	assert.Equal(t, float64(-1), probe.LatencyMs)
	assert.Contains(t, probe.Status, "No Nameservers")
	assert.Contains(t, probe.Status, "connection refused")
}

func TestRunGenericErrorStatus(t *testing.T) {
	b := testBench(func(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
		return nil, 0, errors.New("malformed response")
	})

	results := b.Run()

	probe := results["OpenDNS (208.67.222.222)"]
	assert.Equal(t, float64(-1), probe.LatencyMs)
	assert.Contains(t, probe.Status, "Error (")
}

func TestRunMixedOutcomes(t *testing.T) {
	b := testBench(func(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
		if addr == "8.8.8.8:53" {
			return new(dns.Msg), 8 * time.Millisecond, nil
		}
		return nil, 0, timeoutErr{}
	})

	results := b.Run()

	assert.Equal(t, "Success", results["Google (8.8.8.8)"].Status)
	assert.Equal(t, 8.0, results["Google (8.8.8.8)"].LatencyMs)
	for label, probe := range results {
		if label == "Google (8.8.8.8)" {
			continue
		}
		assert.Equal(t, "Timeout (2s)", probe.Status, label)
	}
}
