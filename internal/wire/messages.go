package wire

import (
	"encoding/binary"

	"github.com/scenesync/core/internal/opmodel"
)

// Bounds from spec.md §6.
const (
	MaxUsernameLen   = 31
	MaxChatMessage   = 255
	MaxSelectionSize = 32
	MaxSessionName   = 63
)

// UserJoinPayload is message type 0x01.
type UserJoinPayload struct {
	Username        string
	ProtocolVersion uint32
}

// EncodeUserJoin builds a full UserJoin frame.
func EncodeUserJoin(senderID uint32, timestampMs uint64, p UserJoinPayload) ([]byte, error) {
	if len(p.Username) > MaxUsernameLen {
		return nil, malformed("UserJoin: username too long")
	}
	payload := make([]byte, 1+len(p.Username)+4)
	payload[0] = byte(len(p.Username))
	copy(payload[1:], p.Username)
	binary.LittleEndian.PutUint32(payload[1+len(p.Username):], p.ProtocolVersion)
	return frameWith(MsgUserJoin, senderID, 0, timestampMs, payload), nil
}

// DecodeUserJoin parses a UserJoin payload (post header-strip).
func DecodeUserJoin(payload []byte) (UserJoinPayload, error) {
	if len(payload) < 1 {
		return UserJoinPayload{}, malformed("UserJoin: truncated")
	}
	nameLen := int(payload[0])
	if nameLen > MaxUsernameLen || len(payload) != 1+nameLen+4 {
		return UserJoinPayload{}, malformed("UserJoin: bad length")
	}
	return UserJoinPayload{
		Username:        string(payload[1 : 1+nameLen]),
		ProtocolVersion: binary.LittleEndian.Uint32(payload[1+nameLen:]),
	}, nil
}

// UserLeavePayload is message type 0x02.
type UserLeavePayload struct {
	UserID uint32
}

func EncodeUserLeave(senderID uint32, timestampMs uint64, p UserLeavePayload) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, p.UserID)
	return frameWith(MsgUserLeave, senderID, 0, timestampMs, payload)
}

func DecodeUserLeave(payload []byte) (UserLeavePayload, error) {
	if len(payload) != 4 {
		return UserLeavePayload{}, malformed("UserLeave: bad length")
	}
	return UserLeavePayload{UserID: binary.LittleEndian.Uint32(payload)}, nil
}

// PresenceUpdatePayload is message type 0x04: the full user record.
type PresenceUpdatePayload struct {
	UserID    uint32
	Role      opmodel.Role
	Active    bool
	Cursor    opmodel.Vec3
	CameraPos opmodel.Vec3
	CameraRot opmodel.Vec3
}

func EncodePresenceUpdate(senderID uint32, timestampMs uint64, p PresenceUpdatePayload) []byte {
	payload := make([]byte, 6+18)
	binary.LittleEndian.PutUint32(payload[0:4], p.UserID)
	payload[4] = byte(p.Role)
	if p.Active {
		payload[5] = 1
	}
	lanes := []float64{
		p.Cursor.X, p.Cursor.Y, p.Cursor.Z,
		p.CameraPos.X, p.CameraPos.Y, p.CameraPos.Z,
		p.CameraRot.X, p.CameraRot.Y, p.CameraRot.Z,
	}
	for i, v := range lanes {
		binary.LittleEndian.PutUint16(payload[6+i*2:8+i*2], uint16(PackFixed(v)))
	}
	return frameWith(MsgPresenceUpdate, senderID, 0, timestampMs, payload)
}

func DecodePresenceUpdate(payload []byte) (PresenceUpdatePayload, error) {
	if len(payload) != 6+18 {
		return PresenceUpdatePayload{}, malformed("PresenceUpdate: bad length")
	}
	lane := func(i int) float64 {
		return UnpackFixed(int16(binary.LittleEndian.Uint16(payload[6+i*2 : 8+i*2])))
	}
	return PresenceUpdatePayload{
		UserID:    binary.LittleEndian.Uint32(payload[0:4]),
		Role:      opmodel.Role(payload[4]),
		Active:    payload[5] != 0,
		Cursor:    opmodel.Vec3{X: lane(0), Y: lane(1), Z: lane(2)},
		CameraPos: opmodel.Vec3{X: lane(3), Y: lane(4), Z: lane(5)},
		CameraRot: opmodel.Vec3{X: lane(6), Y: lane(7), Z: lane(8)},
	}, nil
}

// SelectionUpdatePayload is message type 0x05.
type SelectionUpdatePayload struct {
	UserID    uint32
	ObjectIDs []uint32
}

func EncodeSelectionUpdate(senderID uint32, timestampMs uint64, p SelectionUpdatePayload) ([]byte, error) {
	if len(p.ObjectIDs) > MaxSelectionSize {
		return nil, malformed("SelectionUpdate: too many objects")
	}
	payload := make([]byte, 8+4*len(p.ObjectIDs))
	binary.LittleEndian.PutUint32(payload[0:4], p.UserID)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(len(p.ObjectIDs)))
	for i, id := range p.ObjectIDs {
		binary.LittleEndian.PutUint32(payload[8+i*4:12+i*4], id)
	}
	return frameWith(MsgSelectionUpdate, senderID, 0, timestampMs, payload), nil
}

func DecodeSelectionUpdate(payload []byte) (SelectionUpdatePayload, error) {
	if len(payload) < 8 {
		return SelectionUpdatePayload{}, malformed("SelectionUpdate: truncated")
	}
	count := binary.LittleEndian.Uint32(payload[4:8])
	if count > MaxSelectionSize || len(payload) != 8+int(count)*4 {
		return SelectionUpdatePayload{}, malformed("SelectionUpdate: bad count")
	}
	ids := make([]uint32, count)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(payload[8+i*4 : 12+i*4])
	}
	return SelectionUpdatePayload{UserID: binary.LittleEndian.Uint32(payload[0:4]), ObjectIDs: ids}, nil
}

// ChatMessagePayload is message type 0x06.
type ChatMessagePayload struct {
	UserID      uint32
	Username    string
	Message     string
	TimestampMs uint64
	FlagSystem  bool
}

func EncodeChatMessage(senderID uint32, timestampMs uint64, p ChatMessagePayload) ([]byte, error) {
	if len(p.Username) > MaxUsernameLen || len(p.Message) > MaxChatMessage {
		return nil, malformed("ChatMessage: field too long")
	}
	payload := make([]byte, 4+1+len(p.Username)+1+len(p.Message)+8+1)
	off := 0
	binary.LittleEndian.PutUint32(payload[off:off+4], p.UserID)
	off += 4
	payload[off] = byte(len(p.Username))
	off++
	copy(payload[off:], p.Username)
	off += len(p.Username)
	payload[off] = byte(len(p.Message))
	off++
	copy(payload[off:], p.Message)
	off += len(p.Message)
	binary.LittleEndian.PutUint64(payload[off:off+8], p.TimestampMs)
	off += 8
	if p.FlagSystem {
		payload[off] = 1
	}
	return frameWith(MsgChatMessage, senderID, 0, timestampMs, payload), nil
}

func DecodeChatMessage(payload []byte) (ChatMessagePayload, error) {
	if len(payload) < 5 {
		return ChatMessagePayload{}, malformed("ChatMessage: truncated")
	}
	off := 0
	userID := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4
	if off >= len(payload) {
		return ChatMessagePayload{}, malformed("ChatMessage: truncated")
	}
	unameLen := int(payload[off])
	off++
	if unameLen > MaxUsernameLen || off+unameLen > len(payload) {
		return ChatMessagePayload{}, malformed("ChatMessage: bad username length")
	}
	username := string(payload[off : off+unameLen])
	off += unameLen
	if off >= len(payload) {
		return ChatMessagePayload{}, malformed("ChatMessage: truncated")
	}
	msgLen := int(payload[off])
	off++
	if msgLen > MaxChatMessage || off+msgLen+9 != len(payload) {
		return ChatMessagePayload{}, malformed("ChatMessage: bad message length")
	}
	message := string(payload[off : off+msgLen])
	off += msgLen
	ts := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8
	return ChatMessagePayload{
		UserID: userID, Username: username, Message: message,
		TimestampMs: ts, FlagSystem: payload[off] != 0,
	}, nil
}

// HeartbeatPayload is message type 0x07.
type HeartbeatPayload struct {
	UserID uint32
}

func EncodeHeartbeat(senderID uint32, timestampMs uint64, p HeartbeatPayload) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, p.UserID)
	return frameWith(MsgHeartbeat, senderID, 0, timestampMs, payload)
}

func DecodeHeartbeat(payload []byte) (HeartbeatPayload, error) {
	if len(payload) != 4 {
		return HeartbeatPayload{}, malformed("Heartbeat: bad length")
	}
	return HeartbeatPayload{UserID: binary.LittleEndian.Uint32(payload)}, nil
}

// SyncRequestPayload is message type 0x08.
type SyncRequestPayload struct {
	UserID uint32
}

func EncodeSyncRequest(senderID uint32, timestampMs uint64, p SyncRequestPayload) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, p.UserID)
	return frameWith(MsgSyncRequest, senderID, 0, timestampMs, payload)
}

func DecodeSyncRequest(payload []byte) (SyncRequestPayload, error) {
	if len(payload) != 4 {
		return SyncRequestPayload{}, malformed("SyncRequest: bad length")
	}
	return SyncRequestPayload{UserID: binary.LittleEndian.Uint32(payload)}, nil
}

// SessionInfoPayload is message type 0x09.
type SessionInfoPayload struct {
	SessionID  uint64
	Name       string
	HostUserID uint32
	MaxUsers   uint32
	CreatedMs  uint64
}

func EncodeSessionInfo(senderID uint32, timestampMs uint64, p SessionInfoPayload) ([]byte, error) {
	if len(p.Name) > MaxSessionName {
		return nil, malformed("SessionInfo: name too long")
	}
	payload := make([]byte, 8+1+len(p.Name)+4+4+8)
	off := 0
	binary.LittleEndian.PutUint64(payload[off:off+8], p.SessionID)
	off += 8
	payload[off] = byte(len(p.Name))
	off++
	copy(payload[off:], p.Name)
	off += len(p.Name)
	binary.LittleEndian.PutUint32(payload[off:off+4], p.HostUserID)
	off += 4
	binary.LittleEndian.PutUint32(payload[off:off+4], p.MaxUsers)
	off += 4
	binary.LittleEndian.PutUint64(payload[off:off+8], p.CreatedMs)
	return frameWith(MsgSessionInfo, senderID, 0, timestampMs, payload), nil
}

func DecodeSessionInfo(payload []byte) (SessionInfoPayload, error) {
	if len(payload) < 9 {
		return SessionInfoPayload{}, malformed("SessionInfo: truncated")
	}
	off := 0
	sessionID := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8
	nameLen := int(payload[off])
	off++
	if nameLen > MaxSessionName || off+nameLen+16 != len(payload) {
		return SessionInfoPayload{}, malformed("SessionInfo: bad name length")
	}
	name := string(payload[off : off+nameLen])
	off += nameLen
	hostID := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4
	maxUsers := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4
	created := binary.LittleEndian.Uint64(payload[off : off+8])
	return SessionInfoPayload{SessionID: sessionID, Name: name, HostUserID: hostID, MaxUsers: maxUsers, CreatedMs: created}, nil
}

// frameWith assembles a complete frame for non-Operation message types,
// which don't carry a meaningful sequence number (sequence is reserved
// to the causal-ordering envelope used by Operation/PermissionChange).
func frameWith(t MsgType, senderID, sequence uint32, timestampMs uint64, payload []byte) []byte {
	h := Header{
		MsgType:     t,
		PayloadSize: uint16(len(payload)),
		SenderID:    senderID,
		Sequence:    sequence,
		TimestampMs: timestampMs,
		CRC16:       CRC16(payload),
	}
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, h.Marshal()...)
	frame = append(frame, payload...)
	return frame
}

// DecodeFrame peeks the header and verifies the CRC without interpreting
// the payload, letting callers dispatch on MsgType before picking the
// right per-message decoder.
func DecodeFrame(frame []byte) (Header, []byte, error) {
	if len(frame) < HeaderSize {
		return Header{}, nil, malformed("frame shorter than header")
	}
	h := UnmarshalHeader(frame)
	payload := frame[HeaderSize:]
	if int(h.PayloadSize) != len(payload) {
		return Header{}, nil, malformed("declared payload size mismatch")
	}
	if len(payload) > MaxPayloadSize {
		return Header{}, nil, malformed("payload exceeds bound")
	}
	if CRC16(payload) != h.CRC16 {
		return Header{}, nil, malformed("CRC mismatch")
	}
	return h, payload, nil
}
