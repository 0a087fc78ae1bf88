package fmr

import (
	"bytes"
	"encoding/binary"
)

// NameSize is the fixed, NUL-padded width of a device/module name on the
// wire.
const NameSize = 16

// ConfigurationSize is the fixed size of a Configuration record.
const ConfigurationSize = NameSize + 2 + 2 + 4 // name + identifier + version + attributes

// Attribute bits within Configuration.Attributes.
const (
	Attr32BitPointer uint32 = 1 << 0
	Attr16BitPointer uint32 = 1 << 1
	AttrLittleEndian uint32 = 1 << 2
)

// Configuration is the device's self-description record.
type Configuration struct {
	Name       string
	Identifier uint16
	Version    uint16
	Attributes uint32
}

// Identifier computes the CRC16 a name hashes to on the wire: the name's
// bytes followed by its terminating NUL.
func Identifier(name string) uint16 {
	return CRC16(append([]byte(name), 0))
}

// EncodeName writes name, NUL-padded, into a NameSize buffer. Names over
// NameSize-1 bytes (room for the terminator) are rejected.
func EncodeName(name string) ([]byte, error) {
	if len(name) > NameSize-1 {
		return nil, NewError(KindName, "name exceeds 16 bytes")
	}
	buf := make([]byte, NameSize)
	copy(buf, name)
	return buf, nil
}

// DecodeName reads a NUL-padded name back out of a NameSize buffer.
func DecodeName(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// EncodeConfiguration serializes c into a ConfigurationSize buffer.
func EncodeConfiguration(c Configuration) ([]byte, error) {
	nameBuf, err := EncodeName(c.Name)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, ConfigurationSize)
	copy(buf[0:NameSize], nameBuf)
	binary.LittleEndian.PutUint16(buf[NameSize:NameSize+2], c.Identifier)
	binary.LittleEndian.PutUint16(buf[NameSize+2:NameSize+4], c.Version)
	binary.LittleEndian.PutUint32(buf[NameSize+4:NameSize+8], c.Attributes)
	return buf, nil
}

// DecodeConfiguration parses a ConfigurationSize buffer.
func DecodeConfiguration(buf []byte) (Configuration, error) {
	if len(buf) != ConfigurationSize {
		return Configuration{}, NewError(KindFMR, "malformed configuration record")
	}
	return Configuration{
		Name:       DecodeName(buf[0:NameSize]),
		Identifier: binary.LittleEndian.Uint16(buf[NameSize : NameSize+2]),
		Version:    binary.LittleEndian.Uint16(buf[NameSize+2 : NameSize+4]),
		Attributes: binary.LittleEndian.Uint32(buf[NameSize+4 : NameSize+8]),
	}, nil
}

// PointerWidth resolves sizeof(ptr) for this configuration's attribute
// bitset: 4 bytes unless the 16-bit-pointer bit is set.
func (c Configuration) PointerWidth() int {
	if c.Attributes&Attr16BitPointer != 0 {
		return 2
	}
	if c.Attributes&Attr32BitPointer != 0 {
		return 4
	}
	return 4
}

// IntWidth resolves sizeof(int) the same way PointerWidth resolves sizeof(ptr).
func (c Configuration) IntWidth() int {
	return c.PointerWidth()
}
