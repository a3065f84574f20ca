package wire

import (
	"encoding/binary"

	"github.com/scenesync/core/internal/opmodel"
)

// EncodeOperation serializes op into a complete wire frame: header plus
// OpHeader (kind, object_id) plus the kind-dependent OpBody (spec.md §6).
// PermissionChange ops are encoded as message type MsgPermissionChange
// with a {user_id, new_role} body instead of the generic OpHeader/OpBody
// shape, since spec.md §6 gives PermissionChange its own message type
// while still routing it through the same (sender, sequence, context)
// causal envelope as every other op (spec.md §4.5, scenario S5).
func EncodeOperation(op *opmodel.Operation) ([]byte, error) {
	if !op.Kind.Valid() {
		return nil, malformed("unknown op kind")
	}

	var payload []byte
	var err error
	msgType := MsgOperation

	if op.Kind == opmodel.PermissionChange {
		msgType = MsgPermissionChange
		rp, ok := op.Payload.(opmodel.RolePayload)
		if !ok {
			return nil, malformed("PermissionChange: bad payload")
		}
		payload = make([]byte, 5)
		binary.LittleEndian.PutUint32(payload[0:4], op.Target)
		payload[4] = byte(rp.NewRole)
	} else {
		payload, err = encodeOpBody(op)
		if err != nil {
			return nil, err
		}
	}

	if len(payload) > MaxPayloadSize {
		return nil, malformed("payload too large")
	}

	h := Header{
		MsgType:     msgType,
		PayloadSize: uint16(len(payload)),
		SenderID:    uint32(op.Sender),
		Sequence:    op.Sequence,
		TimestampMs: uint64(op.Timestamp),
		CRC16:       CRC16(payload),
	}

	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, h.Marshal()...)
	frame = append(frame, payload...)
	return frame, nil
}

// encodeOpBody encodes the OpHeader (kind, object_id) followed by the
// kind-specific OpBody.
func encodeOpBody(op *opmodel.Operation) ([]byte, error) {
	buf := make([]byte, 5) // OpHeader: u8 kind, u32 object_id
	buf[0] = byte(op.Kind)
	binary.LittleEndian.PutUint32(buf[1:5], op.Target)

	switch op.Kind {
	case opmodel.Move, opmodel.Rotate, opmodel.Scale:
		p, ok := op.Payload.(opmodel.VectorPayload)
		if !ok {
			return nil, malformed("vector op: bad payload")
		}
		lanes := []int16{
			PackFixed(p.Old.X), PackFixed(p.Old.Y), PackFixed(p.Old.Z),
			PackFixed(p.New.X), PackFixed(p.New.Y), PackFixed(p.New.Z),
		}
		body := make([]byte, 12)
		for i, lane := range lanes {
			binary.LittleEndian.PutUint16(body[i*2:i*2+2], uint16(lane))
		}
		buf = append(buf, body...)

	case opmodel.SetProperty:
		p, ok := op.Payload.(opmodel.PropertyPayload)
		if !ok {
			return nil, malformed("SetProperty: bad payload")
		}
		if len(p.Value) > opmodel.MaxPropertyValue {
			return nil, malformed("SetProperty: value too long")
		}
		body := make([]byte, 5+len(p.Value))
		binary.LittleEndian.PutUint32(body[0:4], p.PropertyHash)
		body[4] = byte(len(p.Value))
		copy(body[5:], p.Value)
		buf = append(buf, body...)

	case opmodel.CreateObject:
		p, ok := op.Payload.(opmodel.CreatePayload)
		if !ok {
			return nil, malformed("CreateObject: bad payload")
		}
		if len(p.Name) > opmodel.MaxNameLength {
			return nil, malformed("CreateObject: name too long")
		}
		body := make([]byte, 1+len(p.Name)+4)
		body[0] = byte(len(p.Name))
		copy(body[1:1+len(p.Name)], p.Name)
		binary.LittleEndian.PutUint32(body[1+len(p.Name):], p.ParentID)
		buf = append(buf, body...)

	case opmodel.HierarchyChange:
		p, ok := op.Payload.(opmodel.HierarchyPayload)
		if !ok {
			return nil, malformed("HierarchyChange: bad payload")
		}
		body := make([]byte, 4)
		binary.LittleEndian.PutUint32(body, p.NewParent)
		buf = append(buf, body...)

	default:
		// Rename, AssignMaterial, AddComponent, RemoveComponent, EditScript,
		// Terrain, Light, Camera, Animation, Physics: opaque fixed-size body
		// passed through verbatim (spec.md §6), bounded at MaxRawPayload.
		p, ok := op.Payload.(opmodel.RawPayload)
		if !ok {
			return nil, malformed("opaque op: bad payload")
		}
		if len(p.Data) > opmodel.MaxRawPayload {
			return nil, malformed("opaque op: body too large")
		}
		buf = append(buf, p.Data...)
	}

	return buf, nil
}

// DecodeOperation parses a complete wire frame into an Operation,
// verifying the CRC-16 and every declared bound. Any violation returns
// ErrMalformed (via DecodeError) and the frame must be discarded by the
// caller without retry (spec.md §4.1, §7).
func DecodeOperation(frame []byte) (*opmodel.Operation, error) {
	if len(frame) < HeaderSize {
		return nil, malformed("frame shorter than header")
	}
	h := UnmarshalHeader(frame)
	payload := frame[HeaderSize:]

	if int(h.PayloadSize) != len(payload) {
		return nil, malformed("declared payload size mismatch")
	}
	if len(payload) > MaxPayloadSize {
		return nil, malformed("payload exceeds bound")
	}
	if CRC16(payload) != h.CRC16 {
		return nil, malformed("CRC mismatch")
	}

	op := &opmodel.Operation{
		Sender:    int(h.SenderID),
		Sequence:  h.Sequence,
		Timestamp: int64(h.TimestampMs),
		Status:    opmodel.Pending,
	}

	switch h.MsgType {
	case MsgPermissionChange:
		if len(payload) != 5 {
			return nil, malformed("PermissionChange: bad payload length")
		}
		op.Kind = opmodel.PermissionChange
		op.Target = binary.LittleEndian.Uint32(payload[0:4])
		op.Payload = opmodel.RolePayload{NewRole: opmodel.Role(payload[4])}
		return op, nil

	case MsgOperation:
		return decodeOpBody(op, payload)

	default:
		return nil, malformed("unexpected message type for operation decode")
	}
}

func decodeOpBody(op *opmodel.Operation, payload []byte) (*opmodel.Operation, error) {
	if len(payload) < 5 {
		return nil, malformed("OpHeader truncated")
	}
	kind := opmodel.Kind(payload[0])
	if !kind.Valid() || kind == opmodel.PermissionChange {
		return nil, malformed("unknown op kind")
	}
	op.Kind = kind
	op.Target = binary.LittleEndian.Uint32(payload[1:5])
	body := payload[5:]

	switch kind {
	case opmodel.Move, opmodel.Rotate, opmodel.Scale:
		if len(body) != 12 {
			return nil, malformed("vector op: bad body length")
		}
		lanes := make([]float64, 6)
		for i := range lanes {
			lanes[i] = UnpackFixed(int16(binary.LittleEndian.Uint16(body[i*2 : i*2+2])))
		}
		op.Payload = opmodel.VectorPayload{
			Old: opmodel.Vec3{X: lanes[0], Y: lanes[1], Z: lanes[2]},
			New: opmodel.Vec3{X: lanes[3], Y: lanes[4], Z: lanes[5]},
		}

	case opmodel.SetProperty:
		if len(body) < 5 {
			return nil, malformed("SetProperty: truncated")
		}
		propertyHash := binary.LittleEndian.Uint32(body[0:4])
		valueSize := int(body[4])
		if len(body) != 5+valueSize {
			return nil, malformed("SetProperty: value_size mismatch")
		}
		value := make([]byte, valueSize)
		copy(value, body[5:])
		op.Payload = opmodel.PropertyPayload{PropertyHash: propertyHash, Value: value}

	case opmodel.CreateObject:
		if len(body) < 1 {
			return nil, malformed("CreateObject: truncated")
		}
		nameLen := int(body[0])
		if nameLen > opmodel.MaxNameLength || len(body) != 1+nameLen+4 {
			return nil, malformed("CreateObject: name_len out of bounds")
		}
		name := string(body[1 : 1+nameLen])
		parentID := binary.LittleEndian.Uint32(body[1+nameLen:])
		op.Payload = opmodel.CreatePayload{Name: name, ParentID: parentID}

	case opmodel.HierarchyChange:
		if len(body) != 4 {
			return nil, malformed("HierarchyChange: bad body length")
		}
		op.Payload = opmodel.HierarchyPayload{NewParent: binary.LittleEndian.Uint32(body)}

	default:
		if len(body) > opmodel.MaxRawPayload {
			return nil, malformed("opaque op: body too large")
		}
		data := make([]byte, len(body))
		copy(data, body)
		op.Payload = opmodel.RawPayload{Data: data}
	}

	return op, nil
}
