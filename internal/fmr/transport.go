package fmr

// Endpoint is the capability set a transport must provide. Every implementation must move exactly the requested byte count
// on Push/Pull or fail; Destroy must be idempotent.
type Endpoint interface {
	// Configure prepares the transport for use. hint is transport-specific
	// (a USB device name, a "host:port" dial target, or unused for an
	// already-connected user-supplied transport).
	Configure(hint string) error
	// Push writes exactly len(p) bytes.
	Push(p []byte) error
	// Pull reads exactly len(p) bytes, filling p.
	Pull(p []byte) error
	// Destroy releases any OS/kernel resources. Calling it more than once
	// must be harmless.
	Destroy() error
}
