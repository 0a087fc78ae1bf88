package fmr

import "encoding/binary"

// ResultSize is the fixed size of a Result frame on the wire.
const ResultSize = 9 // value(8) + error(1)

// Result is the fixed-size response to every request.
type Result struct {
	Value Value
	Error ErrorKind
}

// EncodeResult serializes r into a ResultSize buffer.
func EncodeResult(r Result) []byte {
	buf := make([]byte, ResultSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.Value))
	buf[8] = byte(r.Error)
	return buf
}

// DecodeResult parses a ResultSize buffer.
func DecodeResult(buf []byte) (Result, error) {
	if len(buf) != ResultSize {
		return Result{}, NewError(KindFMR, "malformed result frame")
	}
	return Result{
		Value: Value(binary.LittleEndian.Uint64(buf[0:8])),
		Error: ErrorKind(buf[8]),
	}, nil
}
