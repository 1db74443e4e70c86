package gds

import (
	"strconv"
	"strings"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// Magic-specific element properties carried as PROPATTR/PROPVALUE
// pairs ahead of a SREF/AREF's ENDEL.
const (
	// PropInstanceName overrides a cell-use's display name independent
	// of its def's name.
	PropInstanceName = 98
	// PropArrayLimits carries non-default AREF row/column limits as a
	// "colLo,colHi,rowLo,rowHi" string, for arrays whose drawn extent
	// is a subrange of what COLROW alone encodes.
	PropArrayLimits = 99
)

// applySrefProps interprets the Magic-specific properties attached to
// one SREF/AREF element onto the CellUse just created.
func applySrefProps(use *tile.CellUse, props map[int16]string) {
	if name, ok := props[PropInstanceName]; ok {
		use.InstanceName = name
	}
	if limits, ok := props[PropArrayLimits]; ok && use.ArrayCols > 0 && use.ArrayRows > 0 {
		applyArrayLimits(use, limits)
	}
}

// applyArrayLimits narrows an AREF's drawn extent to the inclusive
// "colLo,colHi,rowLo,rowHi" index range PROPATTR 99 carries. The use's
// origin shifts to the first drawn (colLo,rowLo) instance and
// ArrayCols/ArrayRows shrink to the limit span, so BBox and any
// per-instance walk only see the subrange actually placed.
func applyArrayLimits(use *tile.CellUse, limits string) {
	fields := strings.Split(limits, ",")
	if len(fields) != 4 {
		return
	}
	vals := make([]int64, 4)
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return
		}
		vals[i] = v
	}
	colLo, colHi, rowLo, rowHi := vals[0], vals[1], vals[2], vals[3]
	if colHi < colLo || rowHi < rowLo {
		return
	}
	use.Transform.Tx += colLo*use.ArrayColSpacingX + rowLo*use.ArrayRowSpacingX
	use.Transform.Ty += colLo*use.ArrayColSpacingY + rowLo*use.ArrayRowSpacingY
	use.ArrayCols = int(colHi-colLo) + 1
	use.ArrayRows = int(rowHi-rowLo) + 1
}
