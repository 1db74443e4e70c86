package gds

import (
	"fmt"
	"io"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// Read parses a complete GDS-II stream from r, painting every
// structure's geometry into opts.Registry and returning the resulting
// Library. Read returns an error for a missing or bad HEADER and for a
// stream read failure. A structure that fails to parse (an unexpected
// record or a bad element inside it) is logged at error level and the
// reader skips to that structure's ENDSTR; library-scope records that
// Read does not act on are consumed without a log entry.
func Read(r io.Reader, opts Options) (*Library, error) {
	if opts.XRef == nil {
		return nil, fmt.Errorf("gds: Read: Options.XRef is required")
	}
	if opts.Composer == nil {
		return nil, fmt.Errorf("gds: Read: Options.Composer is required")
	}

	l := newLibrary(opts)
	sr := newStreamReader(r)

	rec, err := sr.readRecord()
	if err != nil {
		return nil, fmt.Errorf("gds: reading HEADER: %w", err)
	}
	if rec.Type != RecHEADER {
		return nil, fmt.Errorf("gds: expected HEADER, got %s", rec.Type)
	}

	if err := l.skipToRecord(sr, RecBGNLIB); err != nil {
		return nil, err
	}

	for {
		rec, err := sr.readRecord()
		if err == io.EOF {
			return l, nil
		}
		if err != nil {
			return l, err
		}

		switch rec.Type {
		case RecLIBNAME:
			l.Name = rec.ASCII()
		case RecUNITS:
			vs := rec.Real8s()
			if len(vs) >= 2 {
				l.setUnits(vs[1])
			}
		case RecBGNSTR:
			if err := l.readStructure(sr); err != nil {
				l.errs.Errorf("gds: %v", err)
				if err := l.skipToRecord(sr, RecENDSTR); err != nil && err != io.EOF {
					return l, err
				}
			}
		case RecENDLIB:
			return l, nil
		default:
			// Library-scope records not otherwise acted on (SRFNAME,
			// LIBSECUR, REFLIBS, FONTS, GENERATIONS, FORMAT, MASK/ENDMASKS,
			// ATTRTABLE) are consumed silently.
		}
	}
}

func (l *Library) skipToRecord(sr *streamReader, want RecType) error {
	for {
		rec, err := sr.readRecord()
		if err != nil {
			return err
		}
		if rec.Type == want {
			return nil
		}
	}
}

// readStructure reads one BGNSTR..ENDSTR structure, creating or
// completing its CellDef in the registry.
func (l *Library) readStructure(sr *streamReader) error {
	rec, err := sr.readRecord()
	if err != nil {
		return err
	}
	if rec.Type != RecSTRNAME {
		return fmt.Errorf("gds: expected STRNAME after BGNSTR, got %s", rec.Type)
	}
	name := rec.ASCII()

	var def *tile.CellDef
	if existing, ok := l.registry.FindDef(name); ok && !existing.Pending {
		l.errs.Warnf("gds: structure %q redefined, using first definition", name)
		return l.skipToRecord(sr, RecENDSTR)
	} else {
		def, err = l.registry.Define(name, defaultPlaneCount, unboundedRect)
		if err != nil {
			return err
		}
	}

	for {
		rec, err := sr.readRecord()
		if err != nil {
			return err
		}
		switch rec.Type {
		case RecENDSTR:
			return nil
		case RecBOUNDARY, RecBOX, RecPATH, RecTEXT, RecSREF, RecAREF:
			if err := l.readElement(sr, def, rec); err != nil {
				return err
			}
		case RecSTRCLASS, RecPROPATTR, RecPROPVALUE:
			// Structure-scope properties not acted on here.
		default:
			return fmt.Errorf("gds: unexpected record %s in structure %q", rec.Type, name)
		}
	}
}

// defaultPlaneCount is the plane count new structures are allocated
// with when the caller's composition table hasn't supplied a fixed
// technology plane count; it matches tile.MaxPlanes so paintRects'
// PrimaryPlane choice always has room.
const defaultPlaneCount = int(tile.MaxPlanes)

var unboundedRect = tile.Rect{XLo: -(1 << 40), YLo: -(1 << 40), XHi: 1 << 40, YHi: 1 << 40}
