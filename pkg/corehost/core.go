// Package corehost wires the eight core components (wire codec, conflict
// oracle, transformer, causal engine, permission gate, presence tracker,
// session controller, dispatcher) plus a transport and an EditorStore
// into one host-owned value, per spec.md §9's "no process-wide statics"
// design note: every piece of mutable state here is reachable only
// through a *Core a caller constructed, never through a package global.
//
// Grounded on the teacher's pkg/server.Kolabpad, which plays the same
// role for a single document (owns state, a mutex, and the pieces that
// touch it); this module's Core instead owns one scenesyncd session's
// components and drives them with a ticker loop modeled on
// pkg/server.Server.StartCleaner's ctx.Done()/ticker.C select loop.
package corehost

import (
	"context"
	"fmt"
	"time"

	"github.com/scenesync/core/internal/causal"
	"github.com/scenesync/core/internal/dispatch"
	"github.com/scenesync/core/internal/editorstore"
	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/opmodel"
	"github.com/scenesync/core/internal/permission"
	"github.com/scenesync/core/internal/presence"
	"github.com/scenesync/core/internal/session"
	"github.com/scenesync/core/internal/transport"
	"github.com/scenesync/core/pkg/config"
	"github.com/scenesync/core/pkg/metrics"
)

// Core aggregates one participant's worth of component state: a single
// session, hosted or joined, driven over one Transport.
type Core struct {
	cfg       *config.Config
	Engine    *causal.Engine
	Store     editorstore.Store
	Roles     *permission.RoleTable
	RoleStore *permission.Store
	Gate      *permission.Gate
	Presence  *presence.Tracker
	Session   *session.Controller
	Dispatch  *dispatch.Dispatcher
	Metrics   *metrics.Collector

	self int
}

// Host constructs a Core in server mode: self is always participant id
// 0 (spec.md §4.7 "Host ... assigns self the Admin role"), and
// HostSession is called immediately so Dispatch can begin accepting
// MsgUserJoin frames right away.
func Host(cfg *config.Config, t transport.Transport, store editorstore.Store, username string, nowMs int64) (*Core, error) {
	c, err := newCore(cfg, t, store, 0)
	if err != nil {
		return nil, err
	}
	c.Session.HostSession(cfg.Session.Name, uint32(cfg.Session.MaxUsers), c.self, username, nowMs)
	return c, nil
}

// Join constructs a Core in client mode: self is the participant id the
// host assigned this peer out-of-band (e.g. over the same signaling
// channel that set up the WebRTC offer/answer), and snap is the
// SessionInfo+history burst the host already sent.
func Join(cfg *config.Config, t transport.Transport, store editorstore.Store, self int, snap session.Snapshot) (*Core, error) {
	c, err := newCore(cfg, t, store, self)
	if err != nil {
		return nil, err
	}
	if err := c.Session.JoinSession(self, snap); err != nil {
		return nil, fmt.Errorf("corehost: join session: %w", err)
	}
	return c, nil
}

func newCore(cfg *config.Config, t transport.Transport, store editorstore.Store, self int) (*Core, error) {
	engine := causal.New(self, store)
	roles := permission.NewRoleTable()

	var roleStore *permission.Store
	if cfg.Roles.DatabasePath != "" {
		rs, err := permission.OpenStore(cfg.Roles.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("corehost: open role store: %w", err)
		}
		roleStore = rs
	}

	gate := permission.NewGate(roles)
	pt := presence.NewTracker()
	sc := session.NewController(engine, pt, roles)
	d := dispatch.New(self, t, engine, gate, roles, pt, sc, cfg.Session.ProtocolVersion)
	if roleStore != nil {
		d.SetRolePersister(func(userID int, role opmodel.Role) {
			if u := pt.User(userID); u != nil {
				if err := roleStore.SetRole(u.Username, role); err != nil {
					logx.Error("corehost: persist role for %q: %v", u.Username, err)
				}
			}
		})
	}

	return &Core{
		cfg:       cfg,
		Engine:    engine,
		Store:     store,
		Roles:     roles,
		RoleStore: roleStore,
		Gate:      gate,
		Presence:  pt,
		Session:   sc,
		Dispatch:  d,
		Metrics:   metrics.New(),
		self:      self,
	}, nil
}

// Submit is a convenience forward to Dispatch.Submit for callers that
// only hold a *Core (e.g. cmd/scenesyncd's interactive loop).
func (c *Core) Submit(kind opmodel.Kind, target uint32, payload interface{}) (*opmodel.Operation, error) {
	return c.Dispatch.Submit(kind, target, payload)
}

// Run drives Dispatch.Tick on a ticker at the configured heartbeat
// interval until ctx is cancelled, persisting any role changes to
// RoleStore as they happen so a crash doesn't silently revert grants.
// Mirrors pkg/server.Server.StartCleaner's ctx.Done()/ticker.C select
// loop, generalized from a once-an-hour sweep to the core's own
// heartbeat cadence.
func (c *Core) Run(ctx context.Context) error {
	interval := c.cfg.Session.HeartbeatInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.Close()
		case now := <-ticker.C:
			c.Dispatch.Tick(now.UnixMilli())
			c.Metrics.Sample(c.Engine, c.Presence)
		}
	}
}

// Close releases the role store's connection, if one was opened.
func (c *Core) Close() error {
	if c.RoleStore != nil {
		if err := c.RoleStore.Close(); err != nil {
			logx.Error("corehost: close role store: %v", err)
			return err
		}
	}
	return nil
}
