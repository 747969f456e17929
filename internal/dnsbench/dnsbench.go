// Package dnsbench measures resolver latency with one timed A query per server.
// It is an optional pre-step of a test run; a failed probe degrades to an error
// entry and never affects the main run.
package dnsbench

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/miekg/dns"
)

// TestDomain is the name resolved against every server. High-availability and
// popular, so answers come from the resolver's cache rather than a slow
// authoritative walk.
const TestDomain = "www.google.com."

const queryTimeout = 2 * time.Second

type server struct {
	Name string
	IP   string
}

var standardServers = []server{
	{"Google", "8.8.8.8"},
	{"Cloudflare", "1.1.1.1"},
	{"Quad9", "9.9.9.9"},
	{"OpenDNS", "208.67.222.222"},
	{"AdGuard DNS", "94.140.14.14"},
	{"Comodo Secure DNS", "8.26.56.26"},
}

// Probe is the outcome of a single server's latency test. LatencyMs is -1
// unless Status is "Success".
type Probe struct {
	LatencyMs float64 `json:"latency_ms"`
	Status    string  `json:"status"`
}

// Results maps a server label ("Google (8.8.8.8)") to its probe outcome.
type Results map[string]Probe

// An exchangeFunc sends one DNS query and reports the round-trip time. Swapped
// out in tests.
type exchangeFunc func(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error)

// Bench runs the sequential probe loop.
type Bench struct {
	log      *slog.Logger
	exchange exchangeFunc
}

func New(log *slog.Logger) *Bench {
	client := &dns.Client{Timeout: queryTimeout}
	return &Bench{
		log:      log,
		exchange: client.Exchange,
	}
}

// Run probes every standard server in order. It never returns an error: each
// failure is recorded in the server's own entry.
func (b *Bench) Run() Results {
	results := make(Results, len(standardServers))
	for _, s := range standardServers {
		label := fmt.Sprintf("%s (%s)", s.Name, s.IP)
		latency, status := b.measure(s.IP)
		results[label] = Probe{LatencyMs: latency, Status: status}
	}
	b.log.Info("dns benchmark finished", "servers", len(results))
	return results
}

func (b *Bench) measure(ip string) (float64, string) {
	msg := new(dns.Msg)
	msg.SetQuestion(TestDomain, dns.TypeA)

	_, rtt, err := b.exchange(msg, net.JoinHostPort(ip, "53"))
	if err != nil {
		b.log.Warn("dns query failed", "server", ip, "error", err)
		return -1, statusFor(err)
	}
	ms := float64(rtt) / float64(time.Millisecond)
	return math.Round(ms*100) / 100, "Success"
}

func statusFor(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Timeout (%ds)", int(queryTimeout/time.Second))
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Sprintf("No Nameservers (%v)", err)
	}
	return fmt.Sprintf("Error (%T)", err)
}
