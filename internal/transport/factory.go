// internal/transport/factory.go
// Builds an fmr.Endpoint from a loaded config.Config, shared by every
// command that needs to turn -transport/-tcp-addr style flags into a
// concrete transport instead of each reimplementing the same switch.
package transport

import (
	"fmt"

	"github.com/google/gousb"

	"fmrhost/internal/config"
	"fmrhost/internal/fmr"
)

// FromConfig returns the endpoint cfg.Transport selects: "usb" opens the
// configured vendor/product over gousb, "tcp" (or the empty string) dials
// the configured host:port. Any other value is an error.
func FromConfig(cfg config.Config) (fmr.Endpoint, error) {
	switch cfg.Transport {
	case "usb":
		return NewUSB(gousb.ID(cfg.USBVendorID), gousb.ID(cfg.USBProductID), 0, 0, 0x01, 0x81, cfg.TCPRWTimeout), nil
	case "tcp", "":
		return NewTCP(cfg.TCPHost, cfg.TCPPort, cfg.TCPDialTimeout, cfg.TCPRWTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}
