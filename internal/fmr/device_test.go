package fmr

import "testing"

func TestDeviceIdentifierIsComputedAtCreation(t *testing.T) {
	d := newDevice("carbon", &mockEndpoint{})
	if d.Identifier() != Identifier("carbon") {
		t.Fatalf("Identifier() = 0x%04X, want 0x%04X", d.Identifier(), Identifier("carbon"))
	}
	if d.Name() != "carbon" {
		t.Fatalf("Name() = %q, want carbon", d.Name())
	}
}

func TestDeviceSetConfigurationOverwritesIdentifier(t *testing.T) {
	d := newDevice("carbon", &mockEndpoint{})
	want := d.Identifier()

	// A device-reported configuration with a mismatched identifier is
	// still recorded by setConfiguration itself; the mismatch is caught
	// one layer up, in Context.configuration.
	d.setConfiguration(Configuration{Name: "carbon", Identifier: 0xDEAD, Version: 2})
	if d.Identifier() == want {
		t.Fatalf("setConfiguration should overwrite the stored identifier")
	}
}

func TestDeviceLastErrorStartsNil(t *testing.T) {
	d := newDevice("carbon", &mockEndpoint{})
	if d.LastError() != nil {
		t.Fatalf("LastError() = %v, want nil", d.LastError())
	}
	d.recordError(NewError(KindEndpoint, "boom"))
	if d.LastError() == nil || d.LastError().Kind != KindEndpoint {
		t.Fatalf("LastError() = %v, want KindEndpoint", d.LastError())
	}
}

func TestDeviceDestroyIsIdempotent(t *testing.T) {
	ep := &mockEndpoint{}
	d := newDevice("carbon", ep)
	if err := d.destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := d.destroy(); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
	if d.endpoint() != nil {
		t.Fatal("endpoint() should be nil after destroy")
	}
}
