// Package wsrelay implements the control-plane Transport over
// nhooyr.io/websocket, used for the host/join server mode (spec.md
// §4.7's "host: initializes transport in server mode"). Grounded on the
// teacher's (shiv248-kolabpad) pkg/server/connection.go connection
// handler: an Accept loop per peer, a read goroutine, and a mutex-guarded
// write path — generalized from the teacher's JSON wsjson.Read/Write
// pair into raw binary frames carrying internal/wire's byte layout
// instead of JSON-encoded protocol.ClientMsg/ServerMsg.
package wsrelay

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/transport"
)

var (
	_ transport.Transport = (*Host)(nil)
	_ transport.Transport = (*Client)(nil)
)

// inboxCapacity bounds the non-blocking inbound queue so a slow core
// tick can never make the read goroutines block indefinitely.
const inboxCapacity = 1024

// Host is a server-mode Transport: it accepts WebSocket connections at
// ServeHTTP and fans every reliable/unreliable send out to all of them.
// Kolabpad's teacher has no multi-peer fan-out (one document, N readers
// all see the same broadcast channel) — this adds the peer set the
// editing-session host needs while keeping the same per-connection
// goroutine shape.
type Host struct {
	mu    sync.Mutex
	peers map[*peerConn]struct{}

	inbox chan []byte
}

type peerConn struct {
	conn   *websocket.Conn
	sendMu sync.Mutex
}

// NewHost creates an empty Host ready to accept connections.
func NewHost() *Host {
	return &Host{
		peers: make(map[*peerConn]struct{}),
		inbox: make(chan []byte, inboxCapacity),
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the peer
// for the lifetime of the connection. Intended to be mounted at a fixed
// path by the embedding cmd's HTTP router.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logx.Error("wsrelay: accept failed: %v", err)
		return
	}

	p := &peerConn{conn: conn}
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()

	h.readLoop(r.Context(), p)
}

func (h *Host) readLoop(ctx context.Context, p *peerConn) {
	defer h.removePeer(p)
	defer p.conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logx.Debug("wsrelay: peer read ended: %v", err)
			}
			return
		}
		select {
		case h.inbox <- data:
		default:
			logx.Error("wsrelay: inbox full, dropping frame")
		}
	}
}

func (h *Host) removePeer(p *peerConn) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
}

// broadcast writes frame to every connected peer; both reliable and
// unreliable sends share the same WebSocket transport here (a TCP
// stream has no per-message unreliable mode), so the distinction the
// Transport interface exposes is only meaningfully different under
// internal/transport/p2p.
func (h *Host) broadcast(frame []byte) error {
	h.mu.Lock()
	peers := make([]*peerConn, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	var firstErr error
	for _, p := range peers {
		if err := p.write(frame); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("wsrelay: write to peer failed: %w", err)
		}
	}
	return firstErr
}

func (p *peerConn) write(frame []byte) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return p.conn.Write(context.Background(), websocket.MessageBinary, frame)
}

func (h *Host) SendReliable(frame []byte) error   { return h.broadcast(frame) }
func (h *Host) SendUnreliable(frame []byte) error { return h.broadcast(frame) }

func (h *Host) Recv() ([]byte, bool) {
	select {
	case frame := <-h.inbox:
		return frame, true
	default:
		return nil, false
	}
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		p.conn.Close(websocket.StatusNormalClosure, "shutting down")
	}
	h.peers = make(map[*peerConn]struct{})
	return nil
}

// Client is a join-mode Transport: a single outbound connection to a
// Host.
type Client struct {
	conn  *websocket.Conn
	inbox chan []byte
	done  chan struct{}
}

// Dial connects to a Host at addr (a ws:// or wss:// URL).
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("wsrelay: dial %s: %w", addr, err)
	}
	c := &Client{
		conn:  conn,
		inbox: make(chan []byte, inboxCapacity),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logx.Debug("wsrelay: client read ended: %v", err)
			}
			return
		}
		select {
		case c.inbox <- data:
		default:
			logx.Error("wsrelay: client inbox full, dropping frame")
		}
	}
}

func (c *Client) send(frame []byte) error {
	return c.conn.Write(context.Background(), websocket.MessageBinary, frame)
}

func (c *Client) SendReliable(frame []byte) error   { return c.send(frame) }
func (c *Client) SendUnreliable(frame []byte) error { return c.send(frame) }

func (c *Client) Recv() ([]byte, bool) {
	select {
	case frame := <-c.inbox:
		return frame, true
	default:
		return nil, false
	}
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "leaving")
}
