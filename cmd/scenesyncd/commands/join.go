package commands

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenesync/core/internal/editorstore"
	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/opmodel"
	"github.com/scenesync/core/internal/presence"
	"github.com/scenesync/core/internal/session"
	"github.com/scenesync/core/internal/transport/wsrelay"
	"github.com/scenesync/core/internal/wire"
	"github.com/scenesync/core/pkg/config"
	"github.com/scenesync/core/pkg/corehost"
)

var joinUsername string

var joinCmd = &cobra.Command{
	Use:   "join <ws-url>",
	Short: "Join an already-running scene editing session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&joinUsername, "username", "guest", "display name announced to the host")
}

func runJoin(cmd *cobra.Command, args []string) error {
	logx.Init()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Network.JoinURL = args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := wsrelay.Dial(ctx, cfg.Network.JoinURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.Network.JoinURL, err)
	}

	self := candidateUserID(joinUsername)
	nowMs := time.Now().UnixMilli()
	joinFrame, err := wire.EncodeUserJoin(uint32(self), uint64(nowMs), wire.UserJoinPayload{
		Username: joinUsername, ProtocolVersion: cfg.Session.ProtocolVersion,
	})
	if err != nil {
		return fmt.Errorf("encode join: %w", err)
	}
	if err := client.SendReliable(joinFrame); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	snap, err := receiveSnapshot(client)
	if err != nil {
		return fmt.Errorf("join handshake: %w", err)
	}

	store := editorstore.NewMemStore()
	core, err := corehost.Join(cfg, client, store, self, snap)
	if err != nil {
		return fmt.Errorf("join session: %w", err)
	}
	defer core.Close()

	logx.Info("scenesyncd: joined %q as participant %d", snap.Session.Name, self)
	return core.Run(ctx)
}

// candidateUserID derives a deterministic, small-space id from username
// so repeated joins by the same display name land on the same slot
// (spec.md §5 bounds participant ids to opmodel.MaxUsers); a host running
// two joiners under the same name is a misconfiguration this command
// doesn't try to resolve automatically.
func candidateUserID(username string) int {
	h := fnv.New32a()
	h.Write([]byte(username))
	return 1 + int(h.Sum32())%(opmodel.MaxUsers-1)
}

// receiveSnapshot drains frames until idle, reconstructing the
// SessionController snapshot burst sendSnapshot produced. The wire
// protocol has no explicit end-of-burst marker, so this applies a short
// idle gap as the practical boundary between the handshake and ordinary
// session traffic.
func receiveSnapshot(client *wsrelay.Client) (session.Snapshot, error) {
	var snap session.Snapshot
	var gotInfo bool
	deadline := time.Now().Add(2 * time.Second)
	idle := 0

	for time.Now().Before(deadline) {
		frame, ok := client.Recv()
		if !ok {
			idle++
			if gotInfo && idle > 20 {
				break
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		idle = 0

		h, payload, err := wire.DecodeFrame(frame)
		if err != nil {
			continue
		}
		switch h.MsgType {
		case wire.MsgSessionInfo:
			p, err := wire.DecodeSessionInfo(payload)
			if err != nil {
				continue
			}
			snap.Session = session.Info{
				Name: p.Name, SessionID: p.SessionID,
				HostUserID: int(p.HostUserID), MaxUsers: p.MaxUsers, CreatedMs: int64(p.CreatedMs),
			}
			gotInfo = true

		case wire.MsgOperation:
			op, err := wire.DecodeOperation(frame)
			if err != nil {
				continue
			}
			snap.History = append(snap.History, op)

		case wire.MsgPresenceUpdate:
			p, err := wire.DecodePresenceUpdate(payload)
			if err != nil {
				continue
			}
			snap.Users = append(snap.Users, &presence.User{
				ID: int(p.UserID), Role: p.Role, Active: p.Active,
				CameraPos: p.CameraPos, CameraRot: p.CameraRot,
			})
		}
	}

	if !gotInfo {
		return snap, fmt.Errorf("timed out waiting for SessionInfo from host")
	}
	return snap, nil
}
