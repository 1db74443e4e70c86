package gds

// rescaleSink receives notice that scale_num grew during a parse in
// progress, so every plane already painted can be rescaled in place.
// *Library implements this by rescaling every def in its registry.
type rescaleSink interface {
	rescaleAll(num, den int64)
}

func (l *Library) rescaleAll(num, den int64) {
	for _, def := range l.registry.All() {
		for _, p := range def.Planes {
			if p != nil {
				p.RescalePlane(num)
			}
		}
	}
}

func gcdInt64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// rescaleCoord converts one raw GDS coordinate into internal units by
// x' = x * scale_num / scale_den. If the division is not exact, it
// grows l.ScaleNum by the smallest factor r that makes it exact
// (rescaling every already-painted plane to match), provided
// scale_num*r stays under RescaleLimit; otherwise it logs a warning
// (through the error counter) and rounds away from zero, in the
// direction of the coordinate's sign.
func (l *Library) rescaleCoord(x int32) int64 {
	num, den := l.ScaleNum, l.ScaleDen
	xi := int64(x)
	product := xi * num
	if den == 1 {
		return product
	}
	if product%den == 0 {
		return product / den
	}

	g := gcdInt64(den, absInt64(product))
	r := den / g
	if num*r < l.opts.RescaleLimit {
		l.ScaleNum *= r
		l.rescaleAll(r, 1)
		num = l.ScaleNum
		product = xi * num
		return product / den // exact after growth by construction
	}

	l.errs.Warnf("gds: coordinate %d does not rescale exactly at scale %d/%d; rounding", x, num, den)
	if product < 0 {
		return -((-product + den - 1) / den)
	}
	return (product + den - 1) / den
}

// setUnits derives (scale_num, scale_den) from a UNITS record's
// meters-per-database-unit value (the record's second real; its first,
// the user-units-per-database-unit multiplier, is ignored by the reader,
// which always emits coordinates in database units, and plays no part
// in the centimicron conversion below).
func (l *Library) setUnits(metersPerDBUnit float64) {
	raw := metersPerDBUnit * 1e8
	n := int64(raw + 0.5)
	if n >= 1 {
		l.ScaleNum = n
		l.ScaleDen = 1
		return
	}
	// raw < 1: swap and invert so scale stays integral.
	inv := int64(1/raw + 0.5)
	if inv < 1 {
		inv = 1
	}
	l.ScaleNum = 1
	l.ScaleDen = inv
}
