package fmr

import (
	"encoding/binary"
	"fmt"
)

// Magic is the fixed first byte of every packet.
const Magic = 0xFE

// PacketSize is the fixed envelope size. 64 bytes leaves a 50-byte
// parameter area after the header and Call record (46 bytes once a bulk
// length prefix is present) and fits inside one USB full-speed
// transaction.
const PacketSize = 64

// Class identifies the packet subclass.
type Class uint8

const (
	ClassConfiguration Class = 0
	ClassStdCall       Class = 1
	ClassUserCall      Class = 2
	ClassPush          Class = 3
	ClassPull          Class = 4
	ClassSend          Class = 5
	ClassReceive       Class = 6
	ClassRAMLoad       Class = 7
	// ClassEvent is reserved by the wire format but never emitted or
	// handled by this runtime.
	ClassEvent Class = 8
)

const (
	headerSize = 6 // magic(1) checksum(2) length(2) class(1)
	callSize   = 8 // index(1) function(1) ret(1) argc(1) types(4)
	// maxParamBytes is the parameter-area ceiling: PacketSize minus header
	// and Call record. It does not subtract the 4-byte length prefix of
	// push/pull/send/receive packets; EncodePacket checks the full size.
	// Encoders must refuse to exceed it.
	maxParamBytes = PacketSize - headerSize - callSize
)

// UnboundIndex is the module-index sentinel meaning "not bound".
const UnboundIndex = -1

// userBit marks a user-module invocation in the high bit of Call.Index.
const userBit = 0x80

// Call is the invocation body shared by std/user calls and the push/pull
// family.
type Call struct {
	Index    uint8 // module index; high bit set for a user invocation
	Function uint8
	Ret      Type
	Argc     uint8
	Types    uint32 // 4-bit tag per argument, nibble i for argument i
	Params   []byte // packed little-endian argument values, in order
}

// SetType stores tag in nibble i of Types.
func (c *Call) SetType(i int, tag Type) {
	shift := uint(i) * 4
	c.Types &^= 0xF << shift
	c.Types |= uint32(tag&0xF) << shift
}

// TypeAt reads nibble i of Types.
func (c *Call) TypeAt(i int) Type {
	return Type((c.Types >> (uint(i) * 4)) & 0xF)
}

// encodeCall packs args into a Call record using width for Int/Ptr sizing.
func encodeCall(index uint8, userInvocation bool, function uint8, ret Type, args *ArgumentList, width int) (*Call, error) {
	if args.Count() > MaxArgs {
		return nil, NewError(KindOverflow, "argument count exceeds limit")
	}
	c := &Call{
		Index:    index,
		Function: function,
		Ret:      ret,
		Argc:     uint8(args.Count()),
	}
	if userInvocation {
		c.Index |= userBit
	}

	var params []byte
	i := 0
	var iterErr error
	args.Iterate(func(t Type, v Value) bool {
		sz, err := Sizeof(t, width)
		if err != nil {
			iterErr = err
			return false
		}
		if len(params)+sz > maxParamBytes {
			iterErr = NewError(KindOverflow, "parameter area exceeds packet capacity")
			return false
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v))
		params = append(params, buf[:sz]...)
		c.SetType(i, t)
		i++
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}
	c.Params = params
	return c, nil
}

// decodeCall is the inverse of encodeCall's wire layout, given the already
// sliced Call-record bytes (Index..Params).
func decodeCall(b []byte) (*Call, error) {
	if len(b) < callSize {
		return nil, NewError(KindFMR, "call record too short")
	}
	c := &Call{
		Index:    b[0],
		Function: b[1],
		Ret:      Type(b[2]),
		Argc:     b[3],
		Types:    binary.LittleEndian.Uint32(b[4:8]),
	}
	c.Params = append([]byte(nil), b[callSize:]...)
	return c, nil
}

// Packet is the fixed-size envelope encoded onto / decoded off the wire.
type Packet struct {
	Checksum uint16
	Length   uint16
	Class    Class
	Call     *Call  // nil for a bare Configuration request
	BulkLen  uint32 // the length prefix for push/pull/send/receive/ram_load
	hasBulk  bool
}

// EncodePacket serializes p into a zeroed PacketSize buffer and computes
// its checksum: magic, then class-specific body, then
// CRC16 over the populated length with the checksum field held at zero.
func EncodePacket(p *Packet) ([]byte, error) {
	buf := make([]byte, PacketSize)
	buf[0] = Magic
	buf[5] = byte(p.Class)

	offset := headerSize
	if p.hasBulk {
		if offset+4 > PacketSize {
			return nil, NewError(KindOverflow, "packet too small for bulk length prefix")
		}
		binary.LittleEndian.PutUint32(buf[offset:offset+4], p.BulkLen)
		offset += 4
	}

	if p.Call != nil {
		total := offset + callSize + len(p.Call.Params)
		if total > PacketSize {
			return nil, NewError(KindOverflow, "call record exceeds packet capacity")
		}
		buf[offset] = p.Call.Index
		buf[offset+1] = p.Call.Function
		buf[offset+2] = byte(p.Call.Ret)
		buf[offset+3] = p.Call.Argc
		binary.LittleEndian.PutUint32(buf[offset+4:offset+8], p.Call.Types)
		copy(buf[offset+8:], p.Call.Params)
		offset += callSize + len(p.Call.Params)
	}

	length := offset
	p.Length = uint16(length)
	binary.LittleEndian.PutUint16(buf[3:5], uint16(length))

	// checksum is computed with the checksum field zeroed, over length bytes
	crc := CRC16(buf[:length])
	p.Checksum = crc
	binary.LittleEndian.PutUint16(buf[1:3], crc)

	return buf, nil
}

// DecodePacket validates and parses a PacketSize buffer, checking magic,
// then length, then checksum, then class, in that order.
func DecodePacket(buf []byte) (*Packet, error) {
	if len(buf) != PacketSize {
		return nil, NewError(KindFMR, fmt.Sprintf("expected %d bytes, got %d", PacketSize, len(buf)))
	}
	if buf[0] != Magic {
		return nil, NewError(KindFMR, "bad magic")
	}

	length := binary.LittleEndian.Uint16(buf[3:5])
	if int(length) < headerSize || int(length) > PacketSize {
		return nil, NewError(KindFMR, "bad length")
	}

	gotChecksum := binary.LittleEndian.Uint16(buf[1:3])
	verify := append([]byte(nil), buf[:length]...)
	verify[1] = 0
	verify[2] = 0
	if CRC16(verify) != gotChecksum {
		return nil, NewError(KindChecksum, "checksum mismatch")
	}

	class := Class(buf[5])
	p := &Packet{Checksum: gotChecksum, Length: length, Class: class}

	offset := headerSize
	switch class {
	case ClassConfiguration:
		// header only
	case ClassStdCall, ClassUserCall:
		call, err := decodeCall(buf[offset:length])
		if err != nil {
			return nil, err
		}
		p.Call = call
	case ClassPush, ClassPull, ClassSend, ClassReceive, ClassRAMLoad:
		if offset+4 > int(length) {
			return nil, NewError(KindFMR, "missing bulk length prefix")
		}
		p.hasBulk = true
		p.BulkLen = binary.LittleEndian.Uint32(buf[offset : offset+4])
		offset += 4
		call, err := decodeCall(buf[offset:length])
		if err != nil {
			return nil, err
		}
		p.Call = call
	case ClassEvent:
		return nil, NewError(KindSubclass, "event class is reserved, not handled")
	default:
		return nil, NewError(KindSubclass, fmt.Sprintf("unknown class %d", class))
	}

	return p, nil
}
