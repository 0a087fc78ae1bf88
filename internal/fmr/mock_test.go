package fmr

import "fmt"

// mockEndpoint is an in-memory Endpoint: Push appends frames to a log,
// Pull drains from a pre-loaded queue. It lets dispatch tests assert on
// exact on-wire bytes without a real transport.
type mockEndpoint struct {
	configureErr error
	pushErr      error
	pullErr      error

	pushed    [][]byte
	pullQueue [][]byte
	pullIdx   int
}

func (m *mockEndpoint) Configure(hint string) error { return m.configureErr }

func (m *mockEndpoint) Push(p []byte) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushed = append(m.pushed, append([]byte(nil), p...))
	return nil
}

func (m *mockEndpoint) Pull(p []byte) error {
	if m.pullErr != nil {
		return m.pullErr
	}
	if m.pullIdx >= len(m.pullQueue) {
		return fmt.Errorf("mockEndpoint: no more queued pull data")
	}
	data := m.pullQueue[m.pullIdx]
	m.pullIdx++
	if len(data) != len(p) {
		return fmt.Errorf("mockEndpoint: pull size mismatch: want %d got %d", len(p), len(data))
	}
	copy(p, data)
	return nil
}

func (m *mockEndpoint) Destroy() error { return nil }

func (m *mockEndpoint) queueResult(r Result) {
	m.pullQueue = append(m.pullQueue, EncodeResult(r))
}

func (m *mockEndpoint) queueBytes(b []byte) {
	m.pullQueue = append(m.pullQueue, append([]byte(nil), b...))
}

// newBoundContext attaches a device over ep, already configured with cfg,
// and returns the context and device for dispatch tests that don't want
// to exercise the attach handshake itself.
func newBoundContext(t interface{ Fatalf(string, ...any) }, name string, ep *mockEndpoint, cfg Configuration) (*Context, *Device) {
	cfgBuf, err := EncodeConfiguration(cfg)
	if err != nil {
		t.Fatalf("EncodeConfiguration: %v", err)
	}
	ep.queueBytes(cfgBuf)
	ep.queueResult(Result{Error: KindOK})

	c := NewContext()
	dev, err := c.AttachEndpoint(name, ep, "")
	if err != nil {
		t.Fatalf("AttachEndpoint: %v", err)
	}
	return c, dev
}
