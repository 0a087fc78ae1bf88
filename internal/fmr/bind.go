package fmr

// systemModuleIndex and lookupFunction address the device's built-in
// module-resolution entry point: a standard (non-user) invocation that
// takes the module's identifier and returns its index or UnboundIndex.
// The wire format has no separate packet class for binding, so a lookup
// is encoded as an ordinary std_call against a reserved module slot, the
// same way any other zero-argument-return query would be dispatched.
const (
	systemModuleIndex = 0
	lookupFunction    = 0
)

// bindIndexType is the signed 32-bit return type the lookup uses so that
// UnboundIndex (-1) round-trips correctly; the wire value is still a
// 64-bit Value underneath.
const bindIndexType = TypeI32

// ensureBound checks that module is already bound to dev, failing fast
// with KindModule and performing no transport I/O otherwise. Binding is a
// separate, explicit step (Bind); invoke-shaped calls never bind on the
// caller's behalf.
func (c *Context) ensureBound(dev *Device, module *Module) error {
	if module == nil {
		return c.fail(dev, NewError(KindModule, "nil module"))
	}
	if module.Bound() && module.Device() == dev {
		return nil
	}
	return c.fail(dev, NewError(KindModule, "module not bound to this device"))
}

// bind performs the lookup round-trip: resolve module's identifier
// against dev and cache the resulting index. The user bit of a
// user-loaded module is OR-ed into the wire index when the module is
// invoked, not stored in the cached index. index == UnboundIndex is
// always a bind failure, never success.
func (c *Context) bind(dev *Device, module *Module) error {
	args := NewArgumentList()
	if err := args.Append(uint64(module.Identifier()), TypeU16); err != nil {
		return c.fail(dev, err.(*Error))
	}

	value, err := c.invokeIndexed(dev, systemModuleIndex, false, lookupFunction, args, bindIndexType)
	if err != nil {
		return c.fail(dev, NewError(KindModule, "module lookup failed: "+err.Error()))
	}

	index := int(int32(value))
	if bindErr := module.bind(dev, index); bindErr != nil {
		return c.fail(dev, bindErr.(*Error))
	}
	c.trackModule(module)
	return nil
}

// Bind resolves module against dev (or the selected device if dev is
// nil), performing the lookup round-trip only if module isn't already
// bound to that device. This is the only operation that performs that
// first-use resolution.
func (c *Context) Bind(dev *Device, module *Module) error {
	dev, err := c.resolveDevice(dev)
	if err != nil {
		return err
	}
	if module != nil && module.Bound() && module.Device() == dev {
		return nil
	}
	if module == nil {
		return c.fail(dev, NewError(KindModule, "nil module"))
	}
	return c.bind(dev, module)
}
