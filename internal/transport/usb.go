// internal/transport/usb.go
// Direct USB access to an attached device, using gousb instead of a kernel
// driver or cdc-acm tty node.

package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/gousb"

	"fmrhost/internal/fmr"
)

// USB configures bulk endpoints on a device found by vendor/product ID and
// implements fmr.Endpoint over them.
type USB struct {
	vendorID, productID gousb.ID
	ifaceNum, altNum    int
	epOutAddr, epInAddr int
	timeout             time.Duration

	ctx    *gousb.Context
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint
}

// NewUSB returns an endpoint that opens the first device matching vid:pid
// when Configure is called. ifaceNum/altNum select the interface; outAddr
// and inAddr are the bulk endpoint addresses (e.g. 0x01, 0x81).
func NewUSB(vid, pid gousb.ID, ifaceNum, altNum, outAddr, inAddr int, timeout time.Duration) *USB {
	return &USB{
		vendorID:  vid,
		productID: pid,
		ifaceNum:  ifaceNum,
		altNum:    altNum,
		epOutAddr: outAddr,
		epInAddr:  inAddr,
		timeout:   timeout,
	}
}

// Configure opens the USB device and claims its interface. hint is unused;
// vendor/product selection happens at construction.
func (u *USB) Configure(hint string) error {
	ctx := gousb.NewContext()

	device, err := ctx.OpenDeviceWithVIDPID(u.vendorID, u.productID)
	if err != nil {
		ctx.Close()
		return fmt.Errorf("usb: open device: %w", err)
	}
	if device == nil {
		ctx.Close()
		return fmt.Errorf("usb: device not found (VID:0x%04x PID:0x%04x)", u.vendorID, u.productID)
	}

	config, err := device.Config(1)
	if err != nil {
		device.Close()
		ctx.Close()
		return fmt.Errorf("usb: set config: %w", err)
	}

	intf, err := config.Interface(u.ifaceNum, u.altNum)
	if err != nil {
		config.Close()
		device.Close()
		ctx.Close()
		return fmt.Errorf("usb: claim interface: %w", err)
	}

	epOut, err := intf.OutEndpoint(u.epOutAddr)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return fmt.Errorf("usb: open out endpoint: %w", err)
	}

	epIn, err := intf.InEndpoint(u.epInAddr)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return fmt.Errorf("usb: open in endpoint: %w", err)
	}

	u.ctx, u.device, u.config, u.intf, u.epOut, u.epIn = ctx, device, config, intf, epOut, epIn
	log.Printf("usb: claimed interface on VID:0x%04x PID:0x%04x (out=0x%02x in=0x%02x)", u.vendorID, u.productID, u.epOutAddr, u.epInAddr)
	return nil
}

// Push writes p to the OUT endpoint in full (fmr.Endpoint requires
// exact-length transfers; a short write is an error).
func (u *USB) Push(p []byte) error {
	n, err := u.epOut.Write(p)
	if err != nil {
		return fmt.Errorf("usb: write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("usb: short write: wrote %d of %d bytes", n, len(p))
	}
	log.Printf("usb: wrote %d bytes", n)
	return nil
}

// Pull reads len(p) bytes from the IN endpoint, bounded by the configured
// timeout.
func (u *USB) Pull(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	n, err := u.epIn.ReadContext(ctx, p)
	if err != nil {
		return fmt.Errorf("usb: read: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("usb: short read: got %d of %d bytes", n, len(p))
	}
	log.Printf("usb: read %d bytes", n)
	return nil
}

// Destroy releases the interface and closes the device and context. It is
// safe to call on a USB value whose Configure never succeeded.
func (u *USB) Destroy() error {
	if u.intf != nil {
		u.intf.Close()
	}
	if u.config != nil {
		u.config.Close()
	}
	if u.device != nil {
		u.device.Close()
	}
	if u.ctx != nil {
		u.ctx.Close()
	}
	log.Printf("usb: released interface on VID:0x%04x PID:0x%04x", u.vendorID, u.productID)
	return nil
}

var _ fmr.Endpoint = (*USB)(nil)
