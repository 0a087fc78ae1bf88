package fmr

import (
	"log"
	"sync"
)

// Device is a host-side handle to an attached device. It owns
// its transport; Module holds only a non-owning back-reference to it,
// resolved through the Registry at call time rather than baked in as a
// raw pointer.
type Device struct {
	mu     sync.Mutex
	config Configuration
	ep     Endpoint
	last   lastError
}

func newDevice(name string, ep Endpoint) *Device {
	return &Device{
		config: Configuration{Name: name, Identifier: Identifier(name)},
		ep:     ep,
	}
}

// Configuration returns the device's last-known self-description.
func (d *Device) Configuration() Configuration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// Identifier is the CRC16 of the device's name plus terminator, computed
// at creation time. setConfiguration overwrites it; Context.configuration
// only stores a device-reported record whose identifier matches it.
func (d *Device) Identifier() uint16 {
	return d.Configuration().Identifier
}

// Name returns the device's configured name.
func (d *Device) Name() string {
	return d.Configuration().Name
}

// LastError returns the most recent error recorded against this device, or
// nil if none.
func (d *Device) LastError() *Error {
	return d.last.get()
}

func (d *Device) recordError(err *Error) *Error {
	if err == nil {
		return nil
	}
	log.Printf("fmr: device %q: %s", d.Name(), err)
	return d.last.set(err)
}

func (d *Device) endpoint() Endpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ep
}

func (d *Device) setConfiguration(c Configuration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = c
}

// destroy tears down the device's transport. Idempotent.
func (d *Device) destroy() error {
	d.mu.Lock()
	ep := d.ep
	d.ep = nil
	d.mu.Unlock()
	if ep == nil {
		return nil
	}
	return ep.Destroy()
}
