package gds

import (
	"github.com/RTimothyEdwards/magic-core/pkg/elog"
	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// LayerXRef resolves a GDS (layer, datatype) pair to an internal
// TileType, the technology's Calma layer cross-reference.
type LayerXRef interface {
	ResolveLayer(layer, datatype int16) (tile.TileType, bool)
}

// PlaneComposer paints/erases through a composition table and reports
// which plane a type should land on, the same contract pkg/compose.Table
// satisfies.
type PlaneComposer interface {
	tile.Composer
	PrimaryPlane(typ tile.TileType) (tile.Plane, bool)
}

// Options configures a Library read.
type Options struct {
	XRef     LayerXRef
	Composer PlaneComposer
	Registry *tile.Registry
	Log      elog.View

	// RescaleLimit bounds how far the reader will grow scale_num to
	// satisfy an exact-division coordinate rescale before giving up and
	// rounding, per the rational rescale-on-read contract.
	RescaleLimit int64

	// SubcellPolygons places non-Manhattan BOUNDARY polygons into
	// auto-named polygonNNNNN cells instead of rectangle-decomposing
	// them in place.
	SubcellPolygons bool

	// PostOrder is stored with the other options; nothing in this
	// package reads it, so it does not change the order of any walk.
	PostOrder bool

	// ErrorLimit caps non-fatal diagnostics before they're silenced
	// with a one-line summary; 0 selects the package default of 100.
	ErrorLimit int
}

// Library is the result of reading one GDS-II stream: its declared
// name, unit scale, and the set of structures painted into the
// registry's cell defs.
type Library struct {
	Name    string
	ScaleNum int64
	ScaleDen int64

	opts     Options
	registry *tile.Registry
	errs     *elog.ErrorCounter
	polyNum  int
}

func newLibrary(opts Options) *Library {
	if opts.RescaleLimit == 0 {
		opts.RescaleLimit = 1 << 30
	}
	if opts.Log == nil {
		opts.Log = elog.NilView{}
	}
	if opts.Registry == nil {
		opts.Registry = tile.NewRegistry()
	}
	ec := elog.NewErrorCounter(opts.Log)
	if opts.ErrorLimit > 0 {
		ec.Limit = opts.ErrorLimit
	}
	return &Library{
		ScaleNum: 1,
		ScaleDen: 1,
		opts:     opts,
		registry: opts.Registry,
		errs:     ec,
	}
}

// Registry returns the cell-def registry structures were painted into.
func (l *Library) Registry() *tile.Registry { return l.registry }

// ErrorCount reports how many non-fatal diagnostics were logged.
func (l *Library) ErrorCount() int { return l.errs.Count() }

func (l *Library) nextPolygonName() string {
	l.polyNum++
	return polygonName(l.polyNum)
}

func polygonName(n int) string {
	const digits = 5
	s := itoa(n)
	for len(s) < digits {
		s = "0" + s
	}
	return "polygon" + s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
