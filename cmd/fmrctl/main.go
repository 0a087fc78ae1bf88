// cmd/fmrctl/main.go
// Command-line client for the fmr runtime: attach a device, bind a
// module, and invoke/push/pull against it.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"fmrhost/internal/config"
	"fmrhost/internal/fmr"
	"fmrhost/internal/transport"
)

var (
	mode       = flag.String("mode", "configuration", "operation: configuration, invoke, push, pull")
	deviceName = flag.String("device", "fmrctl", "name to attach the device under")
	transKind  = flag.String("transport", "", "transport override: usb or tcp (default: from config)")
	tcpAddr    = flag.String("tcp-addr", "", "host:port override for the tcp transport")

	moduleName = flag.String("module", "", "module name to bind before invoke/push/pull")
	isUser     = flag.Bool("user-module", false, "treat module as dynamically-loaded (sets the high index bit)")
	function   = flag.Uint("function", 0, "function index within the module")
	retType    = flag.String("ret", "void", "return type for invoke: void, int, ptr, u8, u16, u32, u64, i8, i16, i32, i64")
	args       = flag.String("args", "", "comma-separated type:value pairs, e.g. u8:10,u16:500")

	addr   = flag.Uint64("addr", 0, "device-side address for push/pull")
	length = flag.Uint("length", 0, "byte length to pull")
	data   = flag.String("data", "", "hex-encoded bytes to push")
)

func main() {
	flag.Parse()

	cfg := config.MustLoadConfig()
	if *transKind != "" {
		cfg.Transport = *transKind
	}

	rt := fmr.NewContext()
	defer rt.Close()

	ep, err := transport.FromConfig(cfg)
	if err != nil {
		log.Fatalf("fmrctl: build transport: %v", err)
	}

	dev, err := rt.AttachEndpoint(*deviceName, ep, *tcpAddr)
	if err != nil {
		log.Fatalf("fmrctl: attach: %v", err)
	}
	log.Printf("fmrctl: attached %q (identifier=0x%04X)", dev.Name(), dev.Identifier())

	var module *fmr.Module
	if *moduleName != "" {
		module, err = fmr.NewModule(*moduleName, *isUser)
		if err != nil {
			log.Fatalf("fmrctl: new module: %v", err)
		}
		if err := rt.Bind(dev, module); err != nil {
			log.Fatalf("fmrctl: bind: %v", err)
		}
		log.Printf("fmrctl: bound module %q at index %d", module.Name(), module.Index())
	}

	switch *mode {
	case "configuration":
		runConfiguration(rt, dev)
	case "invoke":
		runInvoke(rt, dev, module)
	case "push":
		runPush(rt, dev, module)
	case "pull":
		runPull(rt, dev, module)
	default:
		log.Fatalf("fmrctl: unknown mode %q", *mode)
	}

	if err := rt.Detach(dev); err != nil {
		log.Printf("fmrctl: detach: %v", err)
	}
}

func runConfiguration(rt *fmr.Context, dev *fmr.Device) {
	cfg, err := rt.Configuration(dev)
	if err != nil {
		log.Fatalf("fmrctl: configuration: %v", err)
	}
	fmt.Printf("name=%s identifier=0x%04X version=%d attributes=0x%08X pointer_width=%d\n",
		cfg.Name, cfg.Identifier, cfg.Version, cfg.Attributes, cfg.PointerWidth())
}

func runInvoke(rt *fmr.Context, dev *fmr.Device, module *fmr.Module) {
	if module == nil {
		log.Fatalf("fmrctl: invoke requires -module")
	}
	argList, err := parseArgs(*args)
	if err != nil {
		log.Fatalf("fmrctl: parse args: %v", err)
	}
	ret, err := parseType(*retType)
	if err != nil {
		log.Fatalf("fmrctl: parse ret type: %v", err)
	}
	val, err := rt.Invoke(dev, module, uint8(*function), argList, ret)
	if err != nil {
		log.Fatalf("fmrctl: invoke: %v", err)
	}
	fmt.Printf("result=%d\n", val)
}

func runPush(rt *fmr.Context, dev *fmr.Device, module *fmr.Module) {
	if module == nil {
		log.Fatalf("fmrctl: push requires -module")
	}
	payload, err := hex.DecodeString(*data)
	if err != nil {
		log.Fatalf("fmrctl: decode -data: %v", err)
	}
	if err := rt.Push(dev, module, uint8(*function), fmr.Value(*addr), payload, nil); err != nil {
		log.Fatalf("fmrctl: push: %v", err)
	}
	fmt.Printf("pushed %d bytes to 0x%X\n", len(payload), *addr)
}

func runPull(rt *fmr.Context, dev *fmr.Device, module *fmr.Module) {
	if module == nil {
		log.Fatalf("fmrctl: pull requires -module")
	}
	buf := make([]byte, *length)
	if err := rt.Pull(dev, module, uint8(*function), fmr.Value(*addr), buf, nil); err != nil {
		log.Fatalf("fmrctl: pull: %v", err)
	}
	fmt.Printf("data=%s\n", base64.StdEncoding.EncodeToString(buf))
}

func parseArgs(spec string) (*fmr.ArgumentList, error) {
	list := fmr.NewArgumentList()
	if spec == "" {
		return list, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed argument %q, want type:value", pair)
		}
		ty, err := parseType(parts[0])
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(parts[1], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed value in %q: %w", pair, err)
		}
		if err := list.Append(v, ty); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func parseType(name string) (fmr.Type, error) {
	switch name {
	case "void":
		return fmr.TypeVoid, nil
	case "int":
		return fmr.TypeInt, nil
	case "ptr":
		return fmr.TypePtr, nil
	case "u8":
		return fmr.TypeU8, nil
	case "u16":
		return fmr.TypeU16, nil
	case "u32":
		return fmr.TypeU32, nil
	case "u64":
		return fmr.TypeU64, nil
	case "i8":
		return fmr.TypeI8, nil
	case "i16":
		return fmr.TypeI16, nil
	case "i32":
		return fmr.TypeI32, nil
	case "i64":
		return fmr.TypeI64, nil
	default:
		return 0, fmt.Errorf("unknown type %q", name)
	}
}
