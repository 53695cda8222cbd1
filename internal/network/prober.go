// Package network implements the best-effort online/offline detector
// of spec.md §4.8, grounded on original_source/core/network_manager.py's
// multi-method check (TCP dial, then HTTP GET), with its blocking
// socket/requests calls replaced by context-bounded Go equivalents so
// the probe honors the shutdown token like every other suspension
// point (spec.md §5).
package network

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	dialTarget  = "8.8.8.8:53"
	dialTimeout = 3 * time.Second

	httpTarget  = "http://clients3.google.com/generate_204"
	httpTimeout = 5 * time.Second

	cacheTTL = 60 * time.Second
)

// Prober is a cached, best-effort online/offline detector. A single
// instance is safe for concurrent use.
type Prober struct {
	mu                  sync.Mutex
	lastCheck           time.Time
	online              bool
	consecutiveFailures int
	httpClient          *http.Client

	// dialTarget/dialTimeout/httpTarget default to the package
	// constants; tests override them to point at a local listener
	// instead of reaching out to the real internet.
	dialTarget  string
	dialTimeout time.Duration
	httpTarget  string
}

func NewProber() *Prober {
	return &Prober{
		httpClient:  &http.Client{Timeout: httpTimeout},
		dialTarget:  dialTarget,
		dialTimeout: dialTimeout,
		httpTarget:  httpTarget,
	}
}

// NewProberWithTargets builds a Prober against caller-supplied probe
// targets, so callers outside this package (mainly tests) can point it
// at a local listener instead of the real internet.
func NewProberWithTargets(dialTarget string, dialTimeout time.Duration, httpTarget string) *Prober {
	p := NewProber()
	p.dialTarget = dialTarget
	p.dialTimeout = dialTimeout
	p.httpTarget = httpTarget
	return p
}

// Check returns the cached online status if it is still fresh, or
// performs a fresh probe otherwise. Failures are counted but never
// fatal (spec.md §7).
func (p *Prober) Check(ctx context.Context, now time.Time) bool {
	p.mu.Lock()
	if !p.lastCheck.IsZero() && now.Sub(p.lastCheck) < cacheTTL {
		online := p.online
		p.mu.Unlock()
		return online
	}
	p.mu.Unlock()

	online := p.probeDial(ctx) || p.probeHTTP(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastCheck = now
	if online {
		p.consecutiveFailures = 0
	} else {
		p.consecutiveFailures++
	}
	p.online = online
	return online
}

func (p *Prober) probeDial(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", p.dialTarget)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *Prober) probeHTTP(ctx context.Context) bool {
	httpCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpCtx, http.MethodGet, p.httpTarget, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// Info mirrors original_source/core/network_manager.py's
// get_network_info(): a small observability snapshot folded into
// GetStatus (SPEC_FULL.md §9).
type Info struct {
	Online              bool
	LastCheck           time.Time
	ConsecutiveFailures int
}

func (p *Prober) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{Online: p.online, LastCheck: p.lastCheck, ConsecutiveFailures: p.consecutiveFailures}
}
