package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vmware/esx-boot-sub001/internal/memimage"
	"github.com/vmware/esx-boot-sub001/memmap"
	"github.com/vmware/esx-boot-sub001/reloc"
)

// addr is a uint64 that also decodes from "0x..." JSON strings, so
// scenario files can use hexadecimal addresses.
type addr uint64

func (a *addr) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			return fmt.Errorf("bad address %q: %w", str, err)
		}
		*a = addr(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = addr(v)
	return nil
}

// scenario is the JSON description relocctl consumes: a memory map, the
// simulated image extent, and the objects a boot protocol would register.
type scenario struct {
	Memory []struct {
		Start    addr `json:"start"`
		Size     addr `json:"size"`
		Reserved bool `json:"reserved"`
	} `json:"memory"`
	ImageBase   addr   `json:"imageBase"`
	ImageSize   addr   `json:"imageSize"`
	KernelEntry addr   `json:"kernelEntry"`
	Protocol    string `json:"protocol"`
	Objects     []struct {
		Category string `json:"category"`
		Source   addr   `json:"source"`
		ZeroFill bool   `json:"zeroFill"`
		Size     addr   `json:"size"`
		Dest     *addr  `json:"dest"`
		Align    addr   `json:"align"`
	} `json:"objects"`
}

func loadScenario(path string) (*scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if len(sc.Memory) == 0 {
		return nil, fmt.Errorf("scenario %s: no memory ranges", path)
	}
	if sc.ImageSize == 0 {
		return nil, fmt.Errorf("scenario %s: no image extent", path)
	}
	return &sc, nil
}

var categories = map[string]reloc.Category{
	"kernel":  reloc.CategoryKernel,
	"module":  reloc.CategoryModule,
	"sysinfo": reloc.CategorySysInfo,
}

// build assembles the memory map, image, and a planning pipeline with
// every scenario object registered.
func (sc *scenario) build(img *memimage.Image) (*reloc.Planning, *memmap.Map, error) {
	ranges := make([]memmap.Range, 0, len(sc.Memory))
	for _, m := range sc.Memory {
		kind := memmap.KindAvailable
		if m.Reserved {
			kind = memmap.KindSystem
		}
		ranges = append(ranges, memmap.Range{Start: uint64(m.Start), Size: uint64(m.Size), Kind: kind})
	}
	mm, err := memmap.New(ranges...)
	if err != nil {
		return nil, nil, err
	}

	proto := reloc.ProtocolESXBootInfo
	switch sc.Protocol {
	case "", "esxbootinfo":
	case "multiboot":
		proto = reloc.ProtocolMultiboot
	default:
		return nil, nil, fmt.Errorf("unknown protocol %q", sc.Protocol)
	}

	p := reloc.New(reloc.Config{
		KernelEntry: uint64(sc.KernelEntry),
		Protocol:    proto,
	}, mm, img)

	for i, o := range sc.Objects {
		cat, ok := categories[o.Category]
		if !ok {
			return nil, nil, fmt.Errorf("object %d: unknown category %q", i, o.Category)
		}
		req := reloc.Request{
			Category: cat,
			Source:   uint64(o.Source),
			ZeroFill: o.ZeroFill,
			Size:     uint64(o.Size),
			Align:    uint64(o.Align),
		}
		if o.Dest != nil {
			req.Dest = uint64(*o.Dest)
			req.HasDest = true
		}
		if _, err := p.Register(req); err != nil {
			return nil, nil, fmt.Errorf("object %d: %w", i, err)
		}
	}
	return p, mm, nil
}

// openImage opens the backing image: a dump file when given, otherwise an
// anonymous zeroed image of the scenario's extent.
func (sc *scenario) openImage(path string) (*memimage.Image, error) {
	if path != "" {
		return memimage.OpenFile(path, uint64(sc.ImageBase))
	}
	return memimage.New(uint64(sc.ImageBase), uint64(sc.ImageSize)), nil
}
