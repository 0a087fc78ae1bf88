package fmr

import "sync"

// Module is a host-side handle for a named, indexed group of device-side
// functions. Modules are created once at startup and bound to a
// concrete device on first use; binding is what fills in Index and the
// device back-reference.
type Module struct {
	mu      sync.Mutex
	name    string
	id      uint16
	index   int // UnboundIndex until bound
	userBit bool
	device  *Device
}

// NewModule creates an unbound module handle. name must be at most 16
// bytes; isUser marks it as a dynamically-loaded (user) module whose
// invocations set the high bit of the wire index.
func NewModule(name string, isUser bool) (*Module, error) {
	if len(name) > NameSize-1 {
		return nil, NewError(KindName, "module name exceeds 16 bytes")
	}
	return &Module{
		name:    name,
		id:      Identifier(name),
		index:   UnboundIndex,
		userBit: isUser,
	}, nil
}

func (m *Module) Name() string { return m.name }

// Identifier is the CRC16 used to look the module up on the device.
func (m *Module) Identifier() uint16 { return m.id }

// IsUser reports whether this is a dynamically-loaded module.
func (m *Module) IsUser() bool { return m.userBit }

// Bound reports whether the module currently has a device index, i.e.
// whether its device back-reference is non-nil.
func (m *Module) Bound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device != nil
}

// Index returns the bound device-side index, or UnboundIndex.
func (m *Module) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return UnboundIndex
	}
	return m.index
}

// Device returns the device this module is currently bound to, or nil.
func (m *Module) Device() *Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}

// bind records a successful lookup against dev. index must not be
// UnboundIndex: that sentinel always means the lookup failed to resolve
// the module, never that it bound successfully.
func (m *Module) bind(dev *Device, index int) error {
	if index == UnboundIndex {
		return NewError(KindModule, "bind returned the unbound sentinel")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = index
	m.device = dev
	return nil
}

// release clears the module's device back-reference, as happens when the
// bound device is detached.
func (m *Module) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.device = nil
	m.index = UnboundIndex
}
