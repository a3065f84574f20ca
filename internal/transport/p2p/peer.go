// Package p2p implements a Transport over a single pion/webrtc
// PeerConnection with two data channels: an ordered, reliable one for
// Operation/Chat/Session traffic, and an unordered, unreliable one
// (MaxRetransmits=0) for Heartbeat and cursor/camera presence traffic
// (spec.md §4.6). Grounded on wingthing's internal/webrtc.PeerManager
// for connection setup/signaling shape, generalized from its single
// PTY data channel into the reliable/unreliable pair this spec's
// transport contract requires.
package p2p

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/transport"
)

const (
	reliableLabel   = "scenesync-reliable"
	unreliableLabel = "scenesync-unreliable"
	inboxCapacity   = 1024
)

var _ transport.Transport = (*Peer)(nil)

// Peer wraps one pion/webrtc.PeerConnection and its two data channels.
type Peer struct {
	pc *webrtc.PeerConnection

	mu         sync.Mutex
	reliable   *webrtc.DataChannel
	unreliable *webrtc.DataChannel

	inbox chan []byte
}

// NewPeer creates a PeerConnection against the given ICE servers and
// opens both data channels. Call Offer (or accept an incoming offer via
// SetRemoteDescription/CreateAnswer on Raw()) to begin signaling.
func NewPeer(iceServers []webrtc.ICEServer) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("p2p: new peer connection: %w", err)
	}

	p := &Peer{pc: pc, inbox: make(chan []byte, inboxCapacity)}

	ordered := true
	reliable, err := pc.CreateDataChannel(reliableLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("p2p: create reliable channel: %w", err)
	}
	p.reliable = reliable
	p.wireHandlers(reliable)

	unordered := false
	zero := uint16(0)
	unreliable, err := pc.CreateDataChannel(unreliableLabel, &webrtc.DataChannelInit{
		Ordered:        &unordered,
		MaxRetransmits: &zero,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("p2p: create unreliable channel: %w", err)
	}
	p.unreliable = unreliable
	p.wireHandlers(unreliable)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logx.Debug("p2p: connection state: %s", state.String())
	})

	return p, nil
}

func (p *Peer) wireHandlers(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case p.inbox <- msg.Data:
		default:
			logx.Error("p2p: inbox full, dropping frame from %s", dc.Label())
		}
	})
}

// Offer creates a local offer, sets it as the local description, and
// waits for ICE gathering to complete, returning the SDP to hand to the
// signaling channel (out of band; this spec treats signaling as an
// external concern, same as wingthing's relay-tunneled SDP exchange).
func (p *Peer) Offer() (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("p2p: create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("p2p: set local description: %w", err)
	}
	<-gatherComplete
	local := p.pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("p2p: no local description after gathering")
	}
	return local.SDP, nil
}

// Accept consumes a remote offer SDP and returns the answer SDP.
func (p *Peer) Accept(offerSDP string) (string, error) {
	if err := p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer, SDP: offerSDP,
	}); err != nil {
		return "", fmt.Errorf("p2p: set remote description: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("p2p: create answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("p2p: set local description: %w", err)
	}
	<-gatherComplete
	local := p.pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("p2p: no local description after gathering")
	}
	return local.SDP, nil
}

// SetAnswer completes the offering side's handshake with the remote
// answer SDP.
func (p *Peer) SetAnswer(answerSDP string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer, SDP: answerSDP,
	})
}

func (p *Peer) SendReliable(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reliable.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("p2p: reliable channel not open")
	}
	return p.reliable.Send(frame)
}

func (p *Peer) SendUnreliable(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unreliable.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("p2p: unreliable channel not open")
	}
	return p.unreliable.Send(frame)
}

func (p *Peer) Recv() ([]byte, bool) {
	select {
	case frame := <-p.inbox:
		return frame, true
	default:
		return nil, false
	}
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
