// Package fmr implements the Flipper Message Runtime: the host-side wire
// protocol, argument encoding, packet state machine, and dispatch routines
// used to invoke functions exported by an attached device.
package fmr

import "fmt"

// Type tags a scalar argument or return slot. Only the low nibble is stored
// in a packed type vector (see Call.Types in packet.go).
type Type uint8

const (
	TypeVoid Type = 2
	TypeInt  Type = 4
	TypePtr  Type = 6
	TypeU8   Type = 0
	TypeU16  Type = 1
	TypeU32  Type = 3
	TypeU64  Type = 7
	TypeI8   Type = 8
	TypeI16  Type = 9
	TypeI32  Type = 11
	TypeI64  Type = 15
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypePtr:
		return "ptr"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the eleven defined tags.
func (t Type) Valid() bool {
	switch t {
	case TypeVoid, TypeInt, TypePtr, TypeU8, TypeU16, TypeU32, TypeU64, TypeI8, TypeI16, TypeI32, TypeI64:
		return true
	default:
		return false
	}
}

// Sizeof returns the wire width of t in bytes. For TypeInt and TypePtr the
// width is device-dependent and resolved from the device's attribute
// bitset; width must be 2, 4, or 8.
func Sizeof(t Type, width int) (int, error) {
	switch t {
	case TypeVoid:
		return 0, nil
	case TypeU8, TypeI8:
		return 1, nil
	case TypeU16, TypeI16:
		return 2, nil
	case TypeU32, TypeI32:
		return 4, nil
	case TypeU64, TypeI64:
		return 8, nil
	case TypeInt, TypePtr:
		switch width {
		case 2, 4, 8:
			return width, nil
		default:
			return 0, NewError(KindType, fmt.Sprintf("unresolved device width %d for %s", width, t))
		}
	default:
		return 0, NewError(KindIllegalType, fmt.Sprintf("unknown type tag %d", uint8(t)))
	}
}

// Value is the 64-bit little-endian carrier for an argument or result.
// Narrower values occupy the low bits.
type Value uint64
