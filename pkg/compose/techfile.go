package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RTimothyEdwards/magic-core/pkg/techfile"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// Names tracks the type-name universe a technology file declares,
// shared by every package (cif, resist) that needs to turn a user
// type name back into a TileType. Table holds no names; the caller
// creates one Names and passes it to every client that needs it.
type Names struct {
	byName map[string]tile.TileType
	byType map[tile.TileType]string
	next   tile.TileType
}

// NewNames creates an empty name table whose first assigned type is
// TechDepBase.
func NewNames() *Names {
	return &Names{
		byName: make(map[string]tile.TileType),
		byType: make(map[tile.TileType]string),
		next:   tile.TechDepBase,
	}
}

// Define assigns name a fresh TileType if it hasn't been seen, else
// returns its existing one.
func (n *Names) Define(name string) tile.TileType {
	if t, ok := n.byName[name]; ok {
		return t
	}
	t := n.next
	n.next++
	n.byName[name] = t
	n.byType[t] = name
	return t
}

// Resolve looks up a previously Define'd name.
func (n *Names) Resolve(name string) (tile.TileType, bool) {
	t, ok := n.byName[name]
	return t, ok
}

// Name returns the declared name for typ, or "" if none was recorded.
func (n *Names) Name(typ tile.TileType) string { return n.byType[typ] }

// RegisterTechClient registers the `types` and `compose` sections
// against l: `types` declares the (name, plane-list) universe and
// feeds RegisterType/RegisterContact, `compose` carries the
// paint/erase/compose/decompose/lock directives, matching how
// this package's own doc comment describes its role
// ("pkg/techfile drives it from the technology file's
// compose/decompose/paint/erase directives"). names is shared with
// any other client (pkg/cif, pkg/resist) that needs the same type
// universe. composePrereq names any sections (beyond `types`, which is
// always required) the `compose` section's body additionally depends
// on. The `types` SectionID is returned so callers can declare
// further clients (pkg/cif, pkg/resist) dependent on it.
func RegisterTechClient(l *techfile.Loader, t *Table, names *Names, composePrereq techfile.SectionMask) (techfile.SectionID, error) {
	var pendingContacts []func() error

	typesID, err := l.AddClient("types", techfile.ClientFuncs{
		Line: func(f []string) error {
			if len(f) < 1 {
				return nil
			}
			switch f[0] {
			case "type":
				if len(f) < 3 {
					return fmt.Errorf("compose: type: expected \"type <name> <plane>...\", got %q", f)
				}
				typ := names.Define(f[1])
				var mask tile.PlaneMask
				for _, ps := range f[2:] {
					idx, err := strconv.Atoi(ps)
					if err != nil {
						return fmt.Errorf("compose: type: bad plane %q: %w", ps, err)
					}
					mask.Set(tile.Plane(idx))
				}
				t.RegisterType(typ, mask)
			case "contact":
				if len(f) < 4 || len(f)%2 != 0 {
					return fmt.Errorf("compose: contact: expected \"contact <name> <residue> <plane>...\", got %q", f)
				}
				name := f[1]
				residueFields := append([]string(nil), f[2:]...)
				pendingContacts = append(pendingContacts, func() error {
					typ, ok := names.Resolve(name)
					if !ok {
						return fmt.Errorf("compose: contact: unknown type %q", name)
					}
					var residues []Residue
					for i := 0; i+1 < len(residueFields); i += 2 {
						rtyp, ok := names.Resolve(residueFields[i])
						if !ok {
							return fmt.Errorf("compose: contact: unknown residue type %q", residueFields[i])
						}
						idx, err := strconv.Atoi(residueFields[i+1])
						if err != nil {
							return fmt.Errorf("compose: contact: bad plane %q: %w", residueFields[i+1], err)
						}
						residues = append(residues, Residue{Type: rtyp, Plane: tile.Plane(idx)})
					}
					return t.RegisterContact(typ, residues...)
				})
			default:
				return fmt.Errorf("compose: types: unrecognized directive %q", f[0])
			}
			return nil
		},
		Final: func() error {
			for _, fn := range pendingContacts {
				if err := fn(); err != nil {
					return err
				}
			}
			pendingContacts = nil
			t.InitDefaults()
			return nil
		},
	}, 0, false)
	if err != nil {
		return 0, err
	}

	_, err = l.AddClient("compose", techfile.ClientFuncs{
		Line: func(f []string) error { return composeLine(t, names, f) },
	}, (techfile.SectionMask(1)<<uint(typesID))|composePrereq, true)
	return typesID, err
}

func composeLine(t *Table, names *Names, f []string) error {
	if len(f) == 0 {
		return nil
	}
	resolve := func(name string) (tile.TileType, error) {
		typ, ok := names.Resolve(name)
		if !ok {
			return 0, fmt.Errorf("compose: unknown type %q", name)
		}
		return typ, nil
	}
	switch f[0] {
	case "compose":
		if len(f) != 4 {
			return fmt.Errorf("compose: compose: expected \"compose <result> <a> <b>\", got %q", f)
		}
		result, err := resolve(f[1])
		if err != nil {
			return err
		}
		a, err := resolve(f[2])
		if err != nil {
			return err
		}
		b, err := resolve(f[3])
		if err != nil {
			return err
		}
		return t.Compose(result, a, b)
	case "decompose":
		if len(f) != 4 {
			return fmt.Errorf("compose: decompose: expected \"decompose <result> <a> <b>\", got %q", f)
		}
		result, err := resolve(f[1])
		if err != nil {
			return err
		}
		a, err := resolve(f[2])
		if err != nil {
			return err
		}
		b, err := resolve(f[3])
		if err != nil {
			return err
		}
		return t.Decompose(result, a, b)
	case "paint", "erase":
		if len(f) != 4 && len(f) != 5 {
			return fmt.Errorf("compose: %s: expected \"%s <have> <arg> <result> [<plane>]\", got %q", f[0], f[0], f)
		}
		have, err := resolve(f[1])
		if err != nil {
			return err
		}
		arg, err := resolve(f[2])
		if err != nil {
			return err
		}
		result, err := resolve(f[3])
		if err != nil {
			return err
		}
		plane := tile.Plane(-1)
		if len(f) == 5 {
			idx, err := strconv.Atoi(f[4])
			if err != nil {
				return fmt.Errorf("compose: %s: bad plane %q: %w", f[0], f[4], err)
			}
			plane = tile.Plane(idx)
		}
		if f[0] == "paint" {
			t.OverridePaint(have, arg, result, plane)
		} else {
			t.OverrideErase(have, arg, result, plane)
		}
	case "lock":
		if len(f) != 2 {
			return fmt.Errorf("compose: lock: expected \"lock <type>\", got %q", f)
		}
		typ, err := resolve(f[1])
		if err != nil {
			return err
		}
		return t.Lock(typ)
	default:
		return fmt.Errorf("compose: compose: unrecognized directive %q", strings.Join(f, " "))
	}
	return nil
}
