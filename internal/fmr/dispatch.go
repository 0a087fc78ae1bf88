package fmr

import "log"

// transact is the one routine every dispatch protocol shares:
// build the request packet, push it, optionally move a bulk payload in
// the declared direction, pull the fixed-size result frame, and surface
// any non-ok error through both the device and the context's last-error
// slot before returning.
func (c *Context) transact(dev *Device, pkt *Packet, payload []byte, send bool) (Result, error) {
	ep := dev.endpoint()
	if ep == nil {
		return Result{}, c.fail(dev, NewError(KindEndpoint, "device has no transport"))
	}

	buf, err := EncodePacket(pkt)
	if err != nil {
		return Result{}, c.fail(dev, err.(*Error))
	}

	if err := ep.Push(buf); err != nil {
		return Result{}, c.fail(dev, NewError(KindEndpoint, err.Error()))
	}

	if payload != nil {
		if send {
			if err := ep.Push(payload); err != nil {
				return Result{}, c.fail(dev, NewError(KindEndpoint, err.Error()))
			}
		} else {
			if err := ep.Pull(payload); err != nil {
				return Result{}, c.fail(dev, NewError(KindEndpoint, err.Error()))
			}
		}
	}

	respBuf := make([]byte, ResultSize)
	if err := ep.Pull(respBuf); err != nil {
		return Result{}, c.fail(dev, NewError(KindEndpoint, err.Error()))
	}
	res, decErr := DecodeResult(respBuf)
	if decErr != nil {
		return Result{}, c.fail(dev, decErr.(*Error))
	}
	if res.Error != KindOK {
		return res, c.fail(dev, NewError(res.Error, "device reported failure"))
	}
	return res, nil
}

func (c *Context) fail(dev *Device, err *Error) *Error {
	if dev != nil {
		dev.recordError(err)
	}
	return c.recordError(err)
}

// invokeIndexed is the shared core of Invoke and the module-binding
// lookup: it addresses a call by raw (index, user-bit) rather than by a
// resolved *Module, since binding itself has to invoke before a module
// has an index.
func (c *Context) invokeIndexed(dev *Device, index uint8, userInvocation bool, function uint8, args *ArgumentList, ret Type) (Value, error) {
	width := dev.Configuration().PointerWidth()
	call, err := encodeCall(index, userInvocation, function, ret, args, width)
	if err != nil {
		return 0, c.fail(dev, err.(*Error))
	}
	class := ClassStdCall
	if userInvocation {
		class = ClassUserCall
	}
	pkt := &Packet{Class: class, Call: call}
	res, err := c.transact(dev, pkt, nil, false)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Invoke calls function on module with args, returning a value cast to
// ret. The device defaults to the registry's
// currently-selected device when dev is nil. module must already be
// bound; an unbound module fails fast with KindModule and performs no
// transport I/O.
func (c *Context) Invoke(dev *Device, module *Module, function uint8, args *ArgumentList, ret Type) (Value, error) {
	dev, err := c.resolveDevice(dev)
	if err != nil {
		return 0, err
	}
	if err := c.ensureBound(dev, module); err != nil {
		return 0, err
	}
	size, sizeErr := Sizeof(ret, dev.Configuration().PointerWidth())
	if sizeErr != nil {
		return 0, c.fail(dev, sizeErr.(*Error))
	}
	val, err := c.invokeIndexed(dev, uint8(module.Index()), module.IsUser(), function, args, ret)
	if err != nil {
		return 0, err
	}
	if size < 8 {
		val &= Value(1)<<(8*uint(size)) - 1
	}
	return val, nil
}

// transferDirection distinguishes which half of a push/pull/send/receive
// transaction moves the bulk payload.
type transferDirection bool

const (
	dirSend transferDirection = true
	dirRecv transferDirection = false
)

// transfer is the shared core of Push, Pull, Send, Receive, and Load: it
// synthesizes the first two call arguments from addr and the buffer
// length, appends any caller-supplied extra arguments, and moves buf in
// the given direction.
func (c *Context) transfer(class Class, dev *Device, module *Module, function uint8, addr Value, buf []byte, dir transferDirection, extra *ArgumentList) (Result, error) {
	dev, err := c.resolveDevice(dev)
	if err != nil {
		return Result{}, err
	}
	if err := c.ensureBound(dev, module); err != nil {
		return Result{}, err
	}

	width := dev.Configuration().PointerWidth()

	args := NewArgumentList()
	if err := args.Append(uint64(addr), TypePtr); err != nil {
		return Result{}, c.fail(dev, err.(*Error))
	}
	if err := args.Append(uint64(len(buf)), TypeU32); err != nil {
		return Result{}, c.fail(dev, err.(*Error))
	}
	if extra != nil {
		var appendErr error
		extra.Iterate(func(t Type, v Value) bool {
			if err := args.Append(uint64(v), t); err != nil {
				appendErr = err
				return false
			}
			return true
		})
		if appendErr != nil {
			return Result{}, c.fail(dev, appendErr.(*Error))
		}
	}

	call, err := encodeCall(uint8(module.Index()), module.IsUser(), function, TypeVoid, args, width)
	if err != nil {
		return Result{}, c.fail(dev, err.(*Error))
	}

	pkt := &Packet{Class: class, Call: call, hasBulk: true, BulkLen: uint32(len(buf))}
	return c.transact(dev, pkt, buf, bool(dir))
}

// Push copies len(data) bytes from the host to addr on dev via module's
// function. Success only; the result value is ignored.
func (c *Context) Push(dev *Device, module *Module, function uint8, addr Value, data []byte, extra *ArgumentList) error {
	_, err := c.transfer(ClassPush, dev, module, function, addr, data, dirSend, extra)
	return err
}

// Pull fills data by reading len(data) bytes from addr on dev. Success only.
func (c *Context) Pull(dev *Device, module *Module, function uint8, addr Value, data []byte, extra *ArgumentList) error {
	_, err := c.transfer(ClassPull, dev, module, function, addr, data, dirRecv, extra)
	return err
}

// Send copies data to dev the same way Push does, but returns the
// device-side address the data landed at.
func (c *Context) Send(dev *Device, module *Module, function uint8, addr Value, data []byte, extra *ArgumentList) (Value, error) {
	res, err := c.transfer(ClassSend, dev, module, function, addr, data, dirSend, extra)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Receive reads length bytes from addr on dev, returning the bytes and
// the device-side source address carried back in the result.
func (c *Context) Receive(dev *Device, module *Module, function uint8, addr Value, length uint32, extra *ArgumentList) ([]byte, Value, error) {
	data := make([]byte, length)
	res, err := c.transfer(ClassReceive, dev, module, function, addr, data, dirRecv, extra)
	if err != nil {
		return nil, 0, err
	}
	return data, res.Value, nil
}

// Load sends data into device RAM at addr. Success only.
func (c *Context) Load(dev *Device, module *Module, function uint8, addr Value, data []byte, extra *ArgumentList) error {
	_, err := c.transfer(ClassRAMLoad, dev, module, function, addr, data, dirSend, extra)
	return err
}

// configuration runs the configuration round-trip against dev: it sends a
// bare Configuration request, decodes the reply, and verifies the
// device-reported identifier matches the host-computed one. A mismatch is KindNoDevice.
func (c *Context) configuration(dev *Device) (Configuration, error) {
	pkt := &Packet{Class: ClassConfiguration}
	buf := make([]byte, ConfigurationSize)
	res, err := c.transact(dev, pkt, buf, false)
	if err != nil {
		return Configuration{}, err
	}
	_ = res

	cfg, decErr := DecodeConfiguration(buf)
	if decErr != nil {
		return Configuration{}, c.fail(dev, decErr.(*Error))
	}

	want := dev.Identifier()
	if cfg.Identifier != want {
		return Configuration{}, c.fail(dev, NewError(KindNoDevice, "device identifier mismatch"))
	}

	dev.setConfiguration(cfg)
	log.Printf("fmr: device %q configuration confirmed (version=%d attrs=0x%x)", dev.Name(), cfg.Version, cfg.Attributes)
	return cfg, nil
}

// Configuration re-runs the configuration handshake against dev and
// returns the refreshed record.
func (c *Context) Configuration(dev *Device) (Configuration, error) {
	dev, err := c.resolveDevice(dev)
	if err != nil {
		return Configuration{}, err
	}
	return c.configuration(dev)
}
