package fmr

import (
	"bytes"
	"errors"
	"testing"
)

// TestScenarioS1SingleArgumentInvocation checks the exact on-wire bytes
// for a representative invocation: module index 5, function 0, args
// (u8 10, u8 20, u8 30), ret void.
func TestScenarioS1SingleArgumentInvocation(t *testing.T) {
	args := NewArgumentList()
	for _, v := range []uint64{10, 20, 30} {
		if err := args.Append(v, TypeU8); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	call, err := encodeCall(5, false, 0, TypeVoid, args, 4)
	if err != nil {
		t.Fatalf("encodeCall: %v", err)
	}

	buf, err := EncodePacket(&Packet{Class: ClassStdCall, Call: call})
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	if buf[0] != Magic {
		t.Fatalf("magic = 0x%02X, want 0x%02X", buf[0], Magic)
	}
	if Class(buf[5]) != ClassStdCall {
		t.Fatalf("class = %d, want %d", buf[5], ClassStdCall)
	}
	wantLength := headerSize + callSize + 3
	gotLength := int(buf[3]) | int(buf[4])<<8
	if gotLength != wantLength {
		t.Fatalf("length = %d, want %d", gotLength, wantLength)
	}

	body := buf[headerSize : headerSize+callSize+3]
	wantBody := []byte{0x05, 0x00, 0x02, 0x03, 0x00, 0x00, 0x00, 0x00, 0x0A, 0x14, 0x1E}
	if !bytes.Equal(body, wantBody) {
		t.Fatalf("call body = % X, want % X", body, wantBody)
	}

	verify := append([]byte(nil), buf[:wantLength]...)
	verify[1], verify[2] = 0, 0
	wantCRC := CRC16(verify)
	gotCRC := uint16(buf[1]) | uint16(buf[2])<<8
	if gotCRC != wantCRC {
		t.Fatalf("checksum = 0x%04X, want 0x%04X", gotCRC, wantCRC)
	}

	decoded, err := DecodePacket(buf)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if decoded.Call.Index != 5 || decoded.Call.Function != 0 || decoded.Call.Ret != TypeVoid || decoded.Call.Argc != 3 {
		t.Fatalf("decoded call mismatch: %+v", decoded.Call)
	}
	if !bytes.Equal(decoded.Call.Params, []byte{0x0A, 0x14, 0x1E}) {
		t.Fatalf("decoded params = % X", decoded.Call.Params)
	}
}

// TestScenarioS2BadChecksum mutates one byte of an otherwise valid packet
// and expects a checksum error on decode.
func TestScenarioS2BadChecksum(t *testing.T) {
	args := NewArgumentList()
	_ = args.Append(10, TypeU8)
	call, _ := encodeCall(5, false, 0, TypeVoid, args, 4)
	buf, err := EncodePacket(&Packet{Class: ClassStdCall, Call: call})
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	mutated := append([]byte(nil), buf...)
	mutated[headerSize+callSize] ^= 0xFF // flip a param byte

	_, err = DecodePacket(mutated)
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindChecksum {
		t.Fatalf("expected KindChecksum, got %v", err)
	}

	// The original packet is still valid — a decode failure doesn't
	// poison anything beyond this one call.
	if _, err := DecodePacket(buf); err != nil {
		t.Fatalf("original packet should still decode: %v", err)
	}
}

func TestDecodePacketRejectsBadMagic(t *testing.T) {
	buf := make([]byte, PacketSize)
	_, err := DecodePacket(buf)
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindFMR {
		t.Fatalf("expected KindFMR for bad magic, got %v", err)
	}
}

func TestDecodePacketRejectsBadLength(t *testing.T) {
	buf := make([]byte, PacketSize)
	buf[0] = Magic
	buf[3], buf[4] = 0xFF, 0xFF // length far beyond PacketSize
	_, err := DecodePacket(buf)
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindFMR {
		t.Fatalf("expected KindFMR for bad length, got %v", err)
	}
}

func TestDecodePacketRejectsUnknownClass(t *testing.T) {
	pkt := &Packet{Class: ClassConfiguration}
	buf, err := EncodePacket(pkt)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	buf[5] = 42
	// Recompute checksum over the mutated class byte so decode reaches
	// the class switch instead of failing checksum first.
	verify := append([]byte(nil), buf[:headerSize]...)
	verify[1], verify[2] = 0, 0
	crc := CRC16(verify)
	buf[1], buf[2] = byte(crc), byte(crc>>8)

	_, err = DecodePacket(buf)
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindSubclass {
		t.Fatalf("expected KindSubclass, got %v", err)
	}
}

func TestArgumentEncodeRoundTrip(t *testing.T) {
	args := NewArgumentList()
	vals := []struct {
		v uint64
		t Type
	}{
		{1, TypeU8}, {0x0203, TypeU16}, {0x04050607, TypeU32}, {0x08090A0B0C0D0E0F, TypeU64},
	}
	for _, e := range vals {
		if err := args.Append(e.v, e.t); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	call, err := encodeCall(1, false, 0, TypeVoid, args, 4)
	if err != nil {
		t.Fatalf("encodeCall: %v", err)
	}

	wantSize := 1 + 2 + 4 + 8
	if len(call.Params) != wantSize {
		t.Fatalf("params size = %d, want %d", len(call.Params), wantSize)
	}

	decoded, err := decodeCall(append([]byte{call.Index, call.Function, byte(call.Ret), call.Argc,
		byte(call.Types), byte(call.Types >> 8), byte(call.Types >> 16), byte(call.Types >> 24)}, call.Params...))
	if err != nil {
		t.Fatalf("decodeCall: %v", err)
	}
	for i, e := range vals {
		if decoded.TypeAt(i) != e.t {
			t.Errorf("arg %d type = %s, want %s", i, decoded.TypeAt(i), e.t)
		}
	}
}
