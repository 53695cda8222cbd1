package network

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenAndAccept(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().String()
}

func TestProber_DialSucceedsAgainstReachableTarget(t *testing.T) {
	p := NewProber()
	p.dialTarget = listenAndAccept(t)
	p.dialTimeout = time.Second

	assert.True(t, p.probeDial(context.Background()))
}

func TestProber_DialFailsAgainstClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // nothing listens here anymore

	p := NewProber()
	p.dialTarget = addr
	p.dialTimeout = 200 * time.Millisecond

	assert.False(t, p.probeDial(context.Background()))
}

func TestProber_HTTPSucceedsOnOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewProber()
	p.httpTarget = srv.URL

	assert.True(t, p.probeHTTP(context.Background()))
}

func TestProber_HTTPFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProber()
	p.httpTarget = srv.URL

	assert.False(t, p.probeHTTP(context.Background()))
}

func TestProber_CheckCachesResultWithinTTL(t *testing.T) {
	p := NewProber()
	p.dialTarget = "127.0.0.1:1" // would fail if actually dialed
	p.dialTimeout = 50 * time.Millisecond

	now := time.Now()
	p.mu.Lock()
	p.lastCheck = now
	p.online = true
	p.mu.Unlock()

	online := p.Check(context.Background(), now.Add(cacheTTL/2))
	assert.True(t, online)
}

func TestProber_CheckRefreshesAfterTTLExpires(t *testing.T) {
	p := NewProber()
	p.dialTarget = listenAndAccept(t)
	p.dialTimeout = time.Second

	now := time.Now()
	p.mu.Lock()
	p.lastCheck = now.Add(-2 * cacheTTL)
	p.online = false
	p.mu.Unlock()

	online := p.Check(context.Background(), now)
	assert.True(t, online)
}

func TestProber_ConsecutiveFailuresIncrementAndResetOnSuccess(t *testing.T) {
	p := NewProber()
	p.dialTarget = "127.0.0.1:1"
	p.dialTimeout = 50 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	p.httpTarget = srv.URL

	online := p.Check(context.Background(), time.Now())
	require.False(t, online)
	p.mu.Lock()
	assert.Equal(t, 1, p.consecutiveFailures)
	p.mu.Unlock()

	p.dialTarget = listenAndAccept(t)
	online = p.Check(context.Background(), time.Now().Add(2*cacheTTL))
	require.True(t, online)
	p.mu.Lock()
	assert.Equal(t, 0, p.consecutiveFailures)
	p.mu.Unlock()
}

func TestProber_Info(t *testing.T) {
	p := NewProber()
	now := time.Now()
	p.mu.Lock()
	p.online = true
	p.lastCheck = now
	p.consecutiveFailures = 2
	p.mu.Unlock()

	info := p.Info()
	assert.True(t, info.Online)
	assert.Equal(t, now, info.LastCheck)
	assert.Equal(t, 2, info.ConsecutiveFailures)
}
