package cif

import (
	"fmt"
	"strconv"

	"github.com/RTimothyEdwards/magic-core/pkg/compose"
	"github.com/RTimothyEdwards/magic-core/pkg/techfile"
)

// RegisterTechClient registers the `cif` (output-generating) or
// `cifinput` (GDS-ingest cross-reference) section against l, building
// style from `layer`/`gds`/`calma`/`op` directive lines the way
// CIFtech.c's CIFTechLine dispatches a style's body, one declared
// layer and operator list at a time. section names which section
// ("cif" or "cifinput") this call owns; a loader may register both
// against two different styles.
func RegisterTechClient(l *techfile.Loader, section string, style *Style, names *compose.Names, prereq techfile.SectionMask) error {
	var cur *CIFLayer

	_, err := l.AddClient(section, techfile.ClientFuncs{
		Init: func() error {
			style.Status = Pending
			return nil
		},
		Line: func(f []string) error {
			if len(f) == 0 {
				return nil
			}
			switch f[0] {
			case "scalefactor":
				if len(f) != 2 {
					return fmt.Errorf("cif: scalefactor: expected 1 argument, got %q", f)
				}
				v, err := strconv.ParseInt(f[1], 10, 64)
				if err != nil {
					return err
				}
				style.ScaleNum = v
			case "expander":
				v, err := parseInt(f, 1)
				if err != nil {
					return err
				}
				style.Expander = v
			case "reducer":
				v, err := parseInt(f, 1)
				if err != nil {
					return err
				}
				style.Reducer = v
			case "gridlimit":
				v, err := parseInt(f, 1)
				if err != nil {
					return err
				}
				style.GridLimit = v
			case "calma":
				style.Flags |= FlagCalma
			case "variant":
				// `variant <list>` / `variant *` is accepted and ignored;
				// neither this client nor the loader suspends or resumes
				// a section on it.
			case "layer":
				if len(f) != 2 {
					return fmt.Errorf("cif: layer: expected \"layer <name>\", got %q", f)
				}
				cur = &CIFLayer{Name: f[1]}
				style.AddLayer(cur)
			case "templayer":
				if len(f) != 2 {
					return fmt.Errorf("cif: templayer: expected \"templayer <name>\", got %q", f)
				}
				cur = &CIFLayer{Name: f[1], Flags: LayerTemp}
				style.AddLayer(cur)
			case "gds", "layer1":
				if cur == nil || len(f) != 3 {
					return fmt.Errorf("cif: gds: expected a preceding layer and \"gds <layer> <datatype>\", got %q", f)
				}
				layer, err := strconv.Atoi(f[1])
				if err != nil {
					return err
				}
				datatype, err := strconv.Atoi(f[2])
				if err != nil {
					return err
				}
				cur.GDSLayer, cur.GDSDatatype = layer, datatype
			case "masktype":
				if cur == nil || len(f) != 2 {
					return fmt.Errorf("cif: masktype: expected a preceding layer and \"masktype <name>\", got %q", f)
				}
				typ, ok := names.Resolve(f[1])
				if !ok {
					return fmt.Errorf("cif: masktype: unknown type %q", f[1])
				}
				cur.MaskType = typ
			case "height":
				v, err := parseInt(f, 1)
				if err != nil {
					return err
				}
				cur.Height = v
			case "thickness":
				v, err := parseInt(f, 1)
				if err != nil {
					return err
				}
				cur.Thickness = v
			case "minwidth":
				v, err := parseInt(f, 1)
				if err != nil {
					return err
				}
				cur.MinWidth = v
			case "op":
				if cur == nil || len(f) < 2 {
					return fmt.Errorf("cif: op: expected a preceding layer and an opcode, got %q", f)
				}
				op, err := parseOp(f[1:], names)
				if err != nil {
					return err
				}
				cur.Ops = append(cur.Ops, op)
			default:
				return fmt.Errorf("cif: %s: unrecognized directive %q", section, f[0])
			}
			return nil
		},
		Final: func() error {
			style.Reduce()
			style.ApplyGridLimit()
			style.Status = Loaded
			return nil
		},
	}, prereq, true)
	return err
}

func parseInt(f []string, idx int) (int64, error) {
	if len(f) <= idx {
		return 0, fmt.Errorf("cif: %s: missing argument", f[0])
	}
	return strconv.ParseInt(f[idx], 10, 64)
}

var opcodeNames = map[string]Opcode{
	"or": OpOR, "and": OpAND, "and-not": OpANDNOT,
	"grow": OpGROW, "grow_g": OpGROWGrid, "shrink": OpSHRINK,
	"bloat-or": OpBloatOR, "bloat-min": OpBloatMin, "bloat-max": OpBloatMax, "bloat-all": OpBloatAll,
	"squares": OpSquares, "squares_g": OpSquaresGrid, "slots": OpSlots,
	"bbox": OpBBox, "maxrect": OpMaxRectExt, "maxrect-int": OpMaxRectInt, "net": OpNet,
}

// parseOp parses one `op <name> <args>...` operator body. Operand
// tokens are kept as raw names (resolved lazily at Evaluate time);
// numeric arguments after them are the operator's own parameters.
func parseOp(f []string, names *compose.Names) (CIFOp, error) {
	opc, ok := opcodeNames[f[0]]
	if !ok {
		return CIFOp{}, fmt.Errorf("cif: op: unrecognized operator %q", f[0])
	}
	op := CIFOp{Op: opc}
	rest := f[1:]
	switch opc {
	case OpOR, OpAND, OpANDNOT:
		op.Operands = rest
	case OpGROW, OpGROWGrid, OpSHRINK:
		if len(rest) < 1 {
			return op, fmt.Errorf("cif: op %s: missing distance", f[0])
		}
		d, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return op, err
		}
		op.Distance = d
	case OpBloatOR, OpBloatMin, OpBloatMax, OpBloatAll:
		for i := 0; i+1 < len(rest); i += 2 {
			typ, ok := names.Resolve(rest[i])
			if !ok {
				return op, fmt.Errorf("cif: op %s: unknown type %q", f[0], rest[i])
			}
			d, err := strconv.ParseInt(rest[i+1], 10, 64)
			if err != nil {
				return op, err
			}
			op.Bloat = append(op.Bloat, BloatEntry{Type: typ, Distance: d})
		}
	case OpBBox:
		for _, tok := range rest {
			if tok == "top" {
				op.Top = true
			}
		}
	case OpNet:
		if len(rest) < 1 {
			return op, fmt.Errorf("cif: op net: missing label name")
		}
		op.NetLabel = rest[0]
	case OpSquares, OpSquaresGrid:
		vals, err := parseInts(rest)
		if err != nil {
			return op, err
		}
		for len(vals) < 3 {
			vals = append(vals, 0)
		}
		op.Squares = SquaresParams{Border: vals[0], Size: vals[1], Sep: vals[2]}
		if len(vals) >= 5 {
			op.Squares.GridX, op.Squares.GridY = vals[3], vals[4]
		}
	case OpSlots:
		vals, err := parseInts(rest)
		if err != nil {
			return op, err
		}
		for len(vals) < 7 {
			vals = append(vals, 0)
		}
		op.Slots = SlotsParams{
			ShortBorder: vals[0], ShortSize: vals[1], ShortSep: vals[2],
			LongBorder: vals[3], LongSize: vals[4], LongSep: vals[5],
			Offset: vals[6],
		}
	}
	return op, nil
}

func parseInts(fields []string) ([]int64, error) {
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
