package techfile

import (
	"errors"
	"fmt"
	"io"
)

// ErrLoadFailed is returned (wrapped with context) when a required
// section is missing after a load attempt. No partial client state
// is left installed for the section that triggered the failure.
var ErrLoadFailed = errors.New("techfile: load failed")

// RescaleFunc is the signature of a (num, den) rescale callback. The
// type is declared only: Load never invokes one and no package in this
// module defines one.
type RescaleFunc func(num, den int64) error

// Load reads path (or, if empty, reloads the most recently loaded
// file) and dispatches its sections to registered clients. skip names
// sections to bypass entirely — neither their init/line/final
// callbacks run, nor is their `read` bit touched — used to reload a
// single section via the mask SectionMask returns.
func (l *Loader) Load(path string, skip SectionMask) error {
	if path == "" {
		if l.lastPath == "" {
			return fmt.Errorf("techfile: Load(\"\", ...) with no prior successful load")
		}
		path = l.lastPath
	} else {
		resolved, err := resolvePath(path, l.SearchPath)
		if err != nil {
			return err
		}
		path = resolved
	}

	sc := newScanner(l)
	if err := sc.push(path); err != nil {
		return fmt.Errorf("techfile: opening %q: %w", path, err)
	}
	defer sc.closeAll()

	readThisLoad := l.read

	for {
		line, err := sc.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		fields := splitFields(line)
		name := fields[0]

		id, lookupErr := l.sectionID(name, false)
		if lookupErr != nil {
			l.Log.Warnf("techfile: %s: unknown section %q, skipping to end", sc.curPos(), name)
			if err := skipToEnd(sc); err != nil && err != io.EOF {
				return err
			}
			continue
		}
		sec := l.sections[id]

		if skip.Has(id) {
			if err := skipToEnd(sc); err != nil && err != io.EOF {
				return err
			}
			continue
		}

		missing := sec.prereq &^ readThisLoad
		if missing != 0 {
			if sec.optional {
				l.Log.Warnf("techfile: %s: section %q missing prerequisite, skipping", sc.curPos(), sec.name)
				if err := skipToEnd(sc); err != nil && err != io.EOF {
					return err
				}
				continue
			}
			return fmt.Errorf("%w: section %q missing required prerequisite", ErrLoadFailed, sec.name)
		}

		if err := runInits(sec); err != nil {
			return fmt.Errorf("techfile: %s: section %q init: %w", sc.curPos(), sec.name, err)
		}

		for {
			bodyLine, err := sc.next()
			if err == io.EOF {
				return fmt.Errorf("techfile: %s: unterminated section %q", sc.curPos(), sec.name)
			}
			if err != nil {
				return err
			}
			bodyFields := splitFields(bodyLine)
			if len(bodyFields) == 1 && bodyFields[0] == "end" {
				break
			}
			if err := dispatchLine(sec, bodyFields); err != nil {
				l.Log.Warnf("techfile: %s: %v", sc.curPos(), err)
				continue
			}
		}

		if err := runFinals(sec); err != nil {
			return fmt.Errorf("techfile: %s: section %q final: %w", sc.curPos(), sec.name, err)
		}

		readThisLoad |= 1 << uint(id)
	}

	l.read = readThisLoad
	l.lastPath = path
	return nil
}

func runInits(sec *sectionInfo) error {
	for _, c := range sec.clients {
		if c.funcs.Init == nil {
			continue
		}
		if err := c.funcs.Init(); err != nil {
			return fmt.Errorf("client %q: %w", c.name, err)
		}
	}
	return nil
}

func runFinals(sec *sectionInfo) error {
	for _, c := range sec.clients {
		if c.funcs.Final == nil {
			continue
		}
		if err := c.funcs.Final(); err != nil {
			return fmt.Errorf("client %q: %w", c.name, err)
		}
	}
	return nil
}

func dispatchLine(sec *sectionInfo, fields []string) error {
	for _, c := range sec.clients {
		if c.funcs.Line == nil {
			continue
		}
		if err := c.funcs.Line(fields); err != nil {
			return fmt.Errorf("client %q: %w", c.name, err)
		}
	}
	return nil
}

func skipToEnd(sc *scanner) error {
	for {
		line, err := sc.next()
		if err != nil {
			return err
		}
		fields := splitFields(line)
		if len(fields) == 1 && fields[0] == "end" {
			return nil
		}
	}
}
