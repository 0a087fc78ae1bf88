package fmr

import (
	"fmt"
	"sync"
)

// ErrorKind enumerates the host-visible failure taxonomy.
type ErrorKind int

const (
	KindOK ErrorKind = iota
	KindNull
	KindMalloc
	KindName
	KindEndpoint
	KindNoDevice
	KindModule
	KindType
	KindChecksum
	KindSubclass
	KindFMR
	KindOverflow
	KindInvocation
	KindIndexOutOfBounds
	KindIllegalHandle
	KindIllegalType
	KindPackageNotLoaded
	KindTest
)

func (k ErrorKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNull:
		return "null"
	case KindMalloc:
		return "malloc"
	case KindName:
		return "name"
	case KindEndpoint:
		return "endpoint"
	case KindNoDevice:
		return "no_device"
	case KindModule:
		return "module"
	case KindType:
		return "type"
	case KindChecksum:
		return "checksum"
	case KindSubclass:
		return "subclass"
	case KindFMR:
		return "fmr"
	case KindOverflow:
		return "overflow"
	case KindInvocation:
		return "invocation"
	case KindIndexOutOfBounds:
		return "index_out_of_bounds"
	case KindIllegalHandle:
		return "illegal_handle"
	case KindIllegalType:
		return "illegal_type"
	case KindPackageNotLoaded:
		return "package_not_loaded"
	case KindTest:
		return "test"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the concrete error type every public FMR entry point returns on
// failure. It satisfies the standard error interface and unwraps to nothing
// further — Kind is compared directly or via errors.As.
type Error struct {
	Kind    ErrorKind
	Message string
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, fmr.NewError(KindX, "")) match on Kind alone.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// lastError is the process-wide last-error slot. A
// *Context carries its own instance so multi-device callers are not forced
// to share one; DefaultContext wraps a package-level instance for
// single-device programs.
type lastError struct {
	mu  sync.Mutex
	err *Error
}

func (l *lastError) set(e *Error) *Error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = e
	return e
}

func (l *lastError) get() *Error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *lastError) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = nil
}
