// cmd/fmrmonitor/main.go
// Terminal dashboard for a running fmr.Context: attached devices, their
// bound modules, and the last error recorded against each.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fmrhost/internal/config"
	"fmrhost/internal/fmr"
	"fmrhost/internal/transport"
)

var (
	deviceName = flag.String("device", "fmrmonitor", "name to attach the watched device under")
	transKind  = flag.String("transport", "", "transport override: usb or tcp (default: from config)")
	tcpAddr    = flag.String("tcp-addr", "", "host:port override for the tcp transport")
	attach     = flag.Bool("attach", true, "attach a device on startup using the resolved transport config")
)

func main() {
	flag.Parse()

	cfg := config.MustLoadConfig()
	if *transKind != "" {
		cfg.Transport = *transKind
	}

	rt := fmr.NewContext()
	defer rt.Close()

	if *attach {
		ep, err := transport.FromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fmrmonitor: build transport: %v\n", err)
			os.Exit(1)
		}
		if _, err := rt.AttachEndpoint(*deviceName, ep, *tcpAddr); err != nil {
			fmt.Fprintf(os.Stderr, "fmrmonitor: attach %q: %v\n", *deviceName, err)
			// Keep going: the dashboard is also useful for watching a
			// context nothing has attached to yet.
		}
	}

	p := tea.NewProgram(newModel(rt), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fmrmonitor: %v\n", err)
		os.Exit(1)
	}
}
