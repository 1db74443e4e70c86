// Package techfile implements the technology-file loader: a
// single-pass, section-oriented text parser that dispatches lines to
// registered clients. pkg/compose,
// pkg/cif, and pkg/resist each register a client for the sections they
// own (types/compose, cif/cifinput, resistclasses/planeorder); the
// loader itself knows nothing about layers, contacts, or CIF operators.
package techfile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/imdario/mergo"
	"github.com/RTimothyEdwards/magic-core/pkg/elog"
)

// SectionMask is a bitmask over registered sections, at most 64 of
// them (a technology file never needs more than a handful).
type SectionMask uint64

// Has reports whether id's bit is set in the mask.
func (m SectionMask) Has(id SectionID) bool { return m&(1<<uint(id)) != 0 }

// SectionID identifies a registered section.
type SectionID int

// ClientFuncs are the three callbacks a client registers for a
// section: Init runs once when the section header is seen (after
// prerequisites are confirmed satisfied), Line runs once per
// non-empty, non-comment line in the section body, and Final runs once
// when the section's `end` line is reached. Init and Final may be nil.
type ClientFuncs struct {
	Init  func() error
	Line  func(fields []string) error
	Final func() error
}

type clientReg struct {
	name  string
	funcs ClientFuncs
}

type sectionInfo struct {
	id       SectionID
	name     string
	prereq   SectionMask
	optional bool
	clients  []*clientReg
}

// Loader drives the section-oriented parse of a technology file.
type Loader struct {
	Log elog.View

	// SearchPath is tried, in order, to resolve a bare filename passed
	// to Load; each candidate is also tried with a .tech suffix
	// appended.
	SearchPath []string

	sections []*sectionInfo
	byName   map[string]SectionID
	aliases  map[string]string // alias -> canonical name

	read     SectionMask // sections successfully loaded at least once
	lastPath string
}

// NewLoader creates an empty Loader.
func NewLoader(log elog.View) *Loader {
	if log == nil {
		log = elog.NilView{}
	}
	return &Loader{
		Log:     log,
		byName:  make(map[string]SectionID),
		aliases: make(map[string]string),
	}
}

// ErrTooManySections is returned once more than 64 distinct sections
// are registered.
var ErrTooManySections = errors.New("techfile: more than 64 sections registered")

func (l *Loader) canonical(name string) string {
	if p, ok := l.aliases[name]; ok {
		return p
	}
	return name
}

func (l *Loader) sectionID(name string, create bool) (SectionID, error) {
	name = l.canonical(name)
	if id, ok := l.byName[name]; ok {
		return id, nil
	}
	if !create {
		return 0, fmt.Errorf("techfile: unknown section %q", name)
	}
	if len(l.sections) >= 64 {
		return 0, ErrTooManySections
	}
	id := SectionID(len(l.sections))
	l.sections = append(l.sections, &sectionInfo{id: id, name: name})
	l.byName[name] = id
	return id, nil
}

// AddAlias registers alias as an alternative keyword for primary's
// section, e.g. AddAlias("images", "contact") for the historic
// "contact" synonym technology files commonly use.
func (l *Loader) AddAlias(primary, alias string) {
	l.aliases[alias] = primary
}

// AddClient registers a client for a section, allocating the section
// if this is the first client to name it. Multiple clients registered
// against the same section run, in registration order, for every
// phase (init/line/final). prereq names sections that must already be
// marked read before this section's body is processed; optional
// controls whether a missing prerequisite is merely logged (optional)
// or fails the whole load (required — matching the distinction
// between "missing prerequisite section" and "missing required
// section").
func (l *Loader) AddClient(name string, funcs ClientFuncs, prereq SectionMask, optional bool) (SectionID, error) {
	id, err := l.sectionID(name, true)
	if err != nil {
		return 0, err
	}
	sec := l.sections[id]
	sec.prereq = sec.prereq | prereq
	sec.optional = sec.optional || optional
	sec.clients = append(sec.clients, &clientReg{name: name, funcs: funcs})
	return id, nil
}

// SectionMask returns an invert-mask suitable for passing to Load to
// reload just the named section (every other section's bit is set, so
// Load skips them), plus the set of sections that transitively depend
// on it (those whose prereq mask includes it), matching the
// section_mask contract and scenario E6.
func (l *Loader) SectionMask(name string) (skip SectionMask, depends SectionMask, err error) {
	id, err := l.sectionID(name, false)
	if err != nil {
		return 0, 0, err
	}
	var all SectionMask
	for i := range l.sections {
		if SectionID(i) != id {
			all |= 1 << uint(i)
		}
	}
	depends = l.transitiveDependents(id)
	return all, depends, nil
}

func (l *Loader) transitiveDependents(id SectionID) SectionMask {
	var out SectionMask
	frontier := SectionMask(1 << uint(id))
	for {
		var added SectionMask
		for _, sec := range l.sections {
			if out.Has(sec.id) {
				continue
			}
			if sec.prereq&frontier != 0 {
				added |= 1 << uint(sec.id)
			}
		}
		if added == 0 {
			return out
		}
		out |= added
		frontier = added
	}
}

// MergeSectionState merges src into dst field by field: every
// non-empty field of src overwrites dst's, and fields src leaves empty
// keep dst's value. Nothing in this module calls it.
func MergeSectionState(dst, src interface{}) error {
	return mergo.Merge(dst, src, mergo.WithOverride)
}

// globMatch reports whether any of patterns matches name as a glob
// pattern; patterns that fail to compile are ignored. Nothing in this
// module calls it.
func globMatch(patterns []string, name string) bool {
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			continue
		}
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Read returns the mask of sections that have been successfully loaded
// at least once.
func (l *Loader) Read() SectionMask { return l.read }

func splitFields(line string) []string {
	return strings.Fields(line)
}
