package fmr

// Create allocates an unselected, unattached Device handle: it computes
// the name's identifier but does not open a transport. Most callers want
// AttachEndpoint instead.
func (c *Context) Create(name string) (*Device, error) {
	if len(name) > NameSize-1 {
		return nil, c.recordError(NewError(KindName, "device name exceeds 16 bytes"))
	}
	return newDevice(name, nil), nil
}

// AttachEndpoint attaches a device over any transport (USB, network, or a
// caller-supplied one) that the caller has already built; the package has
// no separate USB- or network-specific attach function. It configures ep,
// adds the resulting device to the registry, selects it, and immediately
// runs a configuration round-trip to catch an identifier mismatch as early
// as possible.
func (c *Context) AttachEndpoint(name string, ep Endpoint, hint string) (*Device, error) {
	if len(name) > NameSize-1 {
		return nil, c.recordError(NewError(KindName, "device name exceeds 16 bytes"))
	}
	if err := ep.Configure(hint); err != nil {
		return nil, c.recordError(NewError(KindEndpoint, err.Error()))
	}

	dev := newDevice(name, ep)
	c.Registry.add(dev)
	c.Registry.Select(dev)

	if _, err := c.configuration(dev); err != nil {
		// Leave the device registered and selected: the caller may still
		// want to inspect or detach it even though the identifier check failed.
		return dev, err
	}
	return dev, nil
}

// Select makes dev the current device for invoke/push/pull calls that do
// not name one explicitly. dev must already be in the registry.
func (c *Context) Select(dev *Device) error {
	if !c.Registry.Contains(dev) {
		return c.recordError(NewError(KindNoDevice, "device not in registry"))
	}
	c.Registry.Select(dev)
	return nil
}

// Detach removes dev from the registry, destroys its transport, and
// releases any modules currently bound to it.
func (c *Context) Detach(dev *Device) error {
	if dev == nil {
		return c.recordError(NewError(KindNull, "detach of nil device"))
	}
	if err := c.Registry.Detach(dev, c.trackedModules()); err != nil {
		return c.recordError(NewError(KindEndpoint, err.Error()))
	}
	return nil
}

// resolveDevice picks an explicit device if non-nil, else the registry's
// currently selected device, failing with KindNoDevice if neither exists
// or the explicit device isn't registered.
func (c *Context) resolveDevice(dev *Device) (*Device, error) {
	if dev == nil {
		dev = c.Registry.Selected()
	}
	if dev == nil {
		return nil, c.recordError(NewError(KindNoDevice, "no device selected"))
	}
	if !c.Registry.Contains(dev) {
		return nil, c.recordError(NewError(KindNoDevice, "device not attached"))
	}
	return dev, nil
}
