// Package wire implements the OpCodec (C1): the compact, self-describing
// binary framing described in spec.md §6, including the CRC-16 checksum
// and fixed-point vector packing of §4.1. Grounded on the teacher's
// (shiv248-kolabpad) JSON tagged-union message shapes — same message
// catalogue, re-expressed as the little-endian binary layout the spec
// requires instead of encoding/json.
package wire

import "encoding/binary"

// MagicFrame is the protocol id ("HCOL"). No encoder or decoder in this
// module writes or checks it; every frame starts with the Header below.
const MagicFrame uint32 = 0x48434F4C // "HCOL"

// ProtocolVersion is this build's (major<<16 | minor) protocol version.
const ProtocolVersion uint32 = 1 << 16 // 1.0

// MsgType is the wire message-type tag (spec.md §6).
type MsgType uint8

const (
	MsgUserJoin MsgType = iota + 1
	MsgUserLeave
	MsgOperation
	MsgPresenceUpdate
	MsgSelectionUpdate
	MsgChatMessage
	MsgHeartbeat
	MsgSyncRequest
	MsgSessionInfo
	MsgPermissionChange
)

// HeaderSize is the fixed header length in bytes (spec.md §6).
const HeaderSize = 24

// MaxPayloadSize bounds a single frame's payload, keeping per-frame
// allocation bounded (spec.md §5).
const MaxPayloadSize = 4096

// Header is the fixed 24-byte frame header, little-endian throughout.
type Header struct {
	MsgType     MsgType
	Reserved1   uint8
	PayloadSize uint16
	SenderID    uint32
	Sequence    uint32
	TimestampMs uint64
	CRC16       uint16
	Reserved2   uint16
}

// Marshal encodes h into a 24-byte buffer.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.MsgType)
	buf[1] = h.Reserved1
	binary.LittleEndian.PutUint16(buf[2:4], h.PayloadSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.SenderID)
	binary.LittleEndian.PutUint32(buf[8:12], h.Sequence)
	binary.LittleEndian.PutUint64(buf[12:20], h.TimestampMs)
	binary.LittleEndian.PutUint16(buf[20:22], h.CRC16)
	binary.LittleEndian.PutUint16(buf[22:24], h.Reserved2)
	return buf
}

// UnmarshalHeader decodes a 24-byte header. The caller is responsible for
// bounds-checking buf's length first.
func UnmarshalHeader(buf []byte) Header {
	return Header{
		MsgType:     MsgType(buf[0]),
		Reserved1:   buf[1],
		PayloadSize: binary.LittleEndian.Uint16(buf[2:4]),
		SenderID:    binary.LittleEndian.Uint32(buf[4:8]),
		Sequence:    binary.LittleEndian.Uint32(buf[8:12]),
		TimestampMs: binary.LittleEndian.Uint64(buf[12:20]),
		CRC16:       binary.LittleEndian.Uint16(buf[20:22]),
		Reserved2:   binary.LittleEndian.Uint16(buf[22:24]),
	}
}
