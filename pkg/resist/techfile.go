package resist

import (
	"fmt"
	"strconv"

	"github.com/RTimothyEdwards/magic-core/pkg/techfile"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// TypeResolver maps a technology type name to its TileType, the same
// lookup pkg/cif's Source interface exposes; the extractor's
// techfile client shares the caller's name table rather than keeping
// its own.
type TypeResolver func(name string) (tile.TileType, bool)

// RegisterTechClient registers the `resistclasses` and `planeorder`
// sections against l, filling in e's connectivity, sheet-resistance,
// no-merge, contact-resistance, and device tables as each directive
// line is parsed. Grounded on extract/ExtTech.c's style-section
// registrations (SPEC_FULL §4 supplemented features), expressed the
// way pkg/techfile's own tests register a client (ClientFuncs against
// AddClient).
func RegisterTechClient(l *techfile.Loader, e *Extractor, resolve TypeResolver, prereq techfile.SectionMask) error {
	if e.Connect == nil {
		e.Connect = make(map[tile.TileType]tile.TileTypeMask)
	}
	if e.SheetRes == nil {
		e.SheetRes = make(map[tile.TileType]int64)
	}
	if e.ContactMilliohms == nil {
		e.ContactMilliohms = make(map[tile.TileType]int64)
	}
	if e.NoMerge == nil {
		e.NoMerge = NewNoMergeMask()
	}
	if e.Devices == nil {
		e.Devices = NewDeviceTable()
	}

	_, err := l.AddClient("resistclasses", techfile.ClientFuncs{
		Line: func(f []string) error { return resistClassLine(e, resolve, f) },
	}, prereq, true)
	if err != nil {
		return err
	}

	var order []tile.Plane
	_, err = l.AddClient("planeorder", techfile.ClientFuncs{
		Line: func(f []string) error {
			if len(f) < 2 {
				return fmt.Errorf("resist: planeorder: expected \"<name> <index>\", got %q", f)
			}
			idx, err := strconv.Atoi(f[1])
			if err != nil {
				return fmt.Errorf("resist: planeorder: bad index %q: %w", f[1], err)
			}
			order = append(order, tile.Plane(idx))
			return nil
		},
	}, prereq, true)
	return err
}

func resistClassLine(e *Extractor, resolve TypeResolver, f []string) error {
	if len(f) == 0 {
		return nil
	}
	switch f[0] {
	case "sheet":
		if len(f) != 3 {
			return fmt.Errorf("resist: sheet: expected \"sheet <type> <milliohms>\", got %q", f)
		}
		typ, ok := resolve(f[1])
		if !ok {
			return fmt.Errorf("resist: sheet: unknown type %q", f[1])
		}
		v, err := strconv.ParseInt(f[2], 10, 64)
		if err != nil {
			return fmt.Errorf("resist: sheet: bad value %q: %w", f[2], err)
		}
		e.SheetRes[typ] = v
	case "contact":
		if len(f) != 3 {
			return fmt.Errorf("resist: contact: expected \"contact <type> <milliohms>\", got %q", f)
		}
		typ, ok := resolve(f[1])
		if !ok {
			return fmt.Errorf("resist: contact: unknown type %q", f[1])
		}
		v, err := strconv.ParseInt(f[2], 10, 64)
		if err != nil {
			return fmt.Errorf("resist: contact: bad value %q: %w", f[2], err)
		}
		e.ContactMilliohms[typ] = v
	case "nomerge":
		if len(f) != 3 {
			return fmt.Errorf("resist: nomerge: expected \"nomerge <type1> <type2>\", got %q", f)
		}
		t1, ok1 := resolve(f[1])
		t2, ok2 := resolve(f[2])
		if !ok1 || !ok2 {
			return fmt.Errorf("resist: nomerge: unknown type in %q", f)
		}
		e.NoMerge.Forbid(t1, t2)
	case "connect":
		if len(f) < 3 {
			return fmt.Errorf("resist: connect: expected \"connect <type> <type>...\", got %q", f)
		}
		typ, ok := resolve(f[1])
		if !ok {
			return fmt.Errorf("resist: connect: unknown type %q", f[1])
		}
		mask := e.Connect[typ]
		for _, name := range f[2:] {
			other, ok := resolve(name)
			if !ok {
				return fmt.Errorf("resist: connect: unknown type %q", name)
			}
			mask.Set(other)
		}
		e.Connect[typ] = mask
	case "device":
		if len(f) < 3 {
			return fmt.Errorf("resist: device: expected \"device <gate> <diffusion>...\", got %q", f)
		}
		gate, ok := resolve(f[1])
		if !ok {
			return fmt.Errorf("resist: device: unknown gate type %q", f[1])
		}
		diffs := make([]tile.TileType, 0, len(f)-2)
		for _, name := range f[2:] {
			typ, ok := resolve(name)
			if !ok {
				return fmt.Errorf("resist: device: unknown diffusion type %q", name)
			}
			diffs = append(diffs, typ)
		}
		e.Devices.Register(gate, diffs...)
	default:
		return fmt.Errorf("resist: resistclasses: unrecognized directive %q", f[0])
	}
	return nil
}
