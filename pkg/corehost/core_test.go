package corehost

import (
	"context"
	"testing"
	"time"

	"github.com/scenesync/core/internal/editorstore"
	"github.com/scenesync/core/internal/opmodel"
	"github.com/scenesync/core/pkg/config"
)

type loopbackTransport struct {
	in, out [][]byte
}

func (l *loopbackTransport) SendReliable(frame []byte) error   { l.out = append(l.out, frame); return nil }
func (l *loopbackTransport) SendUnreliable(frame []byte) error { l.out = append(l.out, frame); return nil }
func (l *loopbackTransport) Recv() ([]byte, bool) {
	if len(l.in) == 0 {
		return nil, false
	}
	f := l.in[0]
	l.in = l.in[1:]
	return f, true
}
func (l *loopbackTransport) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Roles.DatabasePath = ""
	return cfg
}

func TestHostAssignsAdminAndAcceptsSubmit(t *testing.T) {
	cfg := testConfig(t)
	tr := &loopbackTransport{}
	c, err := Host(cfg, tr, editorstore.NewMemStore(), "host", 0)
	if err != nil {
		t.Fatalf("Host: %v", err)
	}
	if role, ok := c.Roles.RoleOf(0); !ok || role != opmodel.Admin {
		t.Fatalf("expected host to be Admin, got %v ok=%v", role, ok)
	}
	if _, err := c.Submit(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "cube"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(tr.out) != 1 {
		t.Fatalf("expected one broadcast frame from Submit, got %d", len(tr.out))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.HeartbeatInterval = 10 * time.Millisecond
	c, err := Host(cfg, &loopbackTransport{}, editorstore.NewMemStore(), "host", 0)
	if err != nil {
		t.Fatalf("Host: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
