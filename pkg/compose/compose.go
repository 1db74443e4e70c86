// Package compose maintains the layer composition tables: the paint and
// erase result functions Have x Arg x Plane -> Result that make
// hierarchical painting correct, plus the contact/residue and
// stacked-contact machinery a composition table needs. pkg/techfile
// drives it from the technology file's compose/decompose/paint/erase
// directives; pkg/tile calls it through the tile.Composer interface on
// every paint/erase.
package compose

import (
	"fmt"

	"github.com/RTimothyEdwards/magic-core/pkg/tile"
)

// Residue describes one plane on which a contact type "contains" a
// non-contact type.
type Residue struct {
	Type  tile.TileType
	Plane tile.Plane
}

// typeInfo is the per-TileType metadata the table needs: its
// plane-membership mask and, for contacts, its residues.
type typeInfo struct {
	planes   tile.PlaneMask
	residues []Residue // empty for non-contact types
	locked   bool
}

// entry is one paint/erase table cell.
type entry struct {
	result    tile.TileType
	isDefault bool // true until a user rule overrides it
}

// Table implements tile.Composer over a technology's registered types.
// It is built in two phases: RegisterType calls establish the type
// universe, then InitDefaults seeds the default paint/erase rules,
// after which OverridePaint/OverrideErase apply user rules from the
// tech file (Compose/Decompose only check a declaration's plane-mask
// legality), and finally Lock enforces contact locking.
type Table struct {
	types   map[tile.TileType]*typeInfo
	planes  []tile.Plane
	paint   map[key]entry
	erase   map[key]entry
	write   map[writeKey]tile.TileType // 2D write table: (have,arg) contactless paint shortcut
}

type key struct {
	have, arg tile.TileType
	plane     tile.Plane
}

type writeKey struct {
	have, arg tile.TileType
}

// NewTable creates an empty composition table.
func NewTable() *Table {
	return &Table{
		types:  make(map[tile.TileType]*typeInfo),
		paint:  make(map[key]entry),
		erase:  make(map[key]entry),
		write:  make(map[writeKey]tile.TileType),
	}
}

// RegisterType declares typ as occupying planes. It must be called for
// every TileType (including Space) before InitDefaults.
func (t *Table) RegisterType(typ tile.TileType, planes tile.PlaneMask) {
	t.types[typ] = &typeInfo{planes: planes}
	for _, p := range planes.Planes() {
		if !containsPlane(t.planes, p) {
			t.planes = append(t.planes, p)
		}
	}
}

func containsPlane(ps []tile.Plane, p tile.Plane) bool {
	for _, x := range ps {
		if x == p {
			return true
		}
	}
	return false
}

// RegisterContact declares typ as a contact type bridging the given
// residues (each on its own plane). typ's plane mask must already have
// been registered (via RegisterType) to cover every residue's plane.
func (t *Table) RegisterContact(typ tile.TileType, residues ...Residue) error {
	info, ok := t.types[typ]
	if !ok {
		return fmt.Errorf("compose: contact type %d registered before RegisterType", typ)
	}
	for _, r := range residues {
		if !info.planes.Has(r.Plane) {
			return fmt.Errorf("compose: contact type %d missing plane %d for residue %d", typ, r.Plane, r.Type)
		}
	}
	info.residues = append(info.residues, residues...)
	return nil
}

// Residues returns typ's residues, or nil if typ is not a contact.
func (t *Table) Residues(typ tile.TileType) []Residue {
	info, ok := t.types[typ]
	if !ok {
		return nil
	}
	return info.residues
}

func (t *Table) residueOn(typ tile.TileType, plane tile.Plane) (tile.TileType, bool) {
	for _, r := range t.Residues(typ) {
		if r.Plane == plane {
			return r.Type, true
		}
	}
	return 0, false
}

func (t *Table) planeMask(typ tile.TileType) tile.PlaneMask {
	if info, ok := t.types[typ]; ok {
		return info.planes
	}
	return 0
}

func (t *Table) isContact(typ tile.TileType) bool {
	info, ok := t.types[typ]
	return ok && len(info.residues) > 0
}

// PrimaryPlane returns the lowest-indexed plane typ's mask covers, the
// plane callers should paint onto when a type's full plane set is not
// otherwise determined (e.g. a freshly-read GDS element). Returns
// false if typ was never registered.
func (t *Table) PrimaryPlane(typ tile.TileType) (tile.Plane, bool) {
	mask, ok := t.types[typ]
	if !ok {
		return 0, false
	}
	for _, p := range mask.planes.Planes() {
		return p, true
	}
	return 0, false
}

// InitDefaults seeds the default paint/erase rules
// before any user rule is applied, for every plane a type occupies and
// for the full TileType x TileType cross product of registered types.
func (t *Table) InitDefaults() {
	for have := range t.types {
		for arg := range t.types {
			for _, plane := range t.planes {
				t.paint[key{have, arg, plane}] = entry{result: t.defaultPaint(have, arg, plane), isDefault: true}
				t.erase[key{have, arg, plane}] = entry{result: t.defaultErase(have, arg, plane), isDefault: true}
			}
		}
	}
}

func (t *Table) defaultPaint(have, arg tile.TileType, plane tile.Plane) tile.TileType {
	argMask := t.planeMask(arg)
	// Paint of X on Y on a plane not in X's plane-mask: Y unchanged.
	if !argMask.Has(plane) {
		return have
	}
	// Paint X onto SPACE on X's home plane => X.
	if have == tile.Space {
		return arg
	}
	// Contact-over-anything-compatible-with-its-own-residue: no-op,
	// keeps the contact intact.
	if t.isContact(have) {
		if res, ok := t.residueOn(have, plane); ok && (res == arg || arg == tile.Space) {
			return have
		}
	}
	// Painting a primary contact K onto any Y on any plane of R(K) =>
	// K (overwrites), including painting K over itself.
	if t.isContact(arg) {
		for _, r := range t.Residues(arg) {
			if r.Plane == plane && (r.Type == have || have == tile.Space) {
				return arg
			}
		}
		if t.isContact(have) {
			if stacked, ok := t.stackedContact(have, arg); ok {
				return stacked
			}
			return t.decomposeOnto(have, arg, plane)
		}
	}
	return arg
}

func (t *Table) defaultErase(have, arg tile.TileType, plane tile.Plane) tile.TileType {
	argMask := t.planeMask(arg)
	if !argMask.Has(plane) {
		return have
	}
	if have == arg {
		return tile.Space
	}
	if t.isContact(have) {
		info := t.types[have]
		if info.locked {
			if res, ok := t.residueOn(have, plane); ok && res == arg {
				return have
			}
		}
		for _, r := range t.Residues(have) {
			if r.Plane == plane && r.Type == arg {
				return tile.Space
			}
		}
		// Erasing arg from contact have on a plane where have's residue
		// is some other type: have decomposes to that residue. (On
		// planes outside arg's mask the first check returned have.)
		if res, ok := t.residueOn(have, plane); ok {
			return res
		}
	}
	return have
}

// stackedContact looks for an existing registered type whose residues
// equal the union of a's and b's residues (the "implicit stacking
// type" a composition table allows).
func (t *Table) stackedContact(a, b tile.TileType) (tile.TileType, bool) {
	want := map[Residue]bool{}
	for _, r := range t.Residues(a) {
		want[r] = true
	}
	for _, r := range t.Residues(b) {
		want[r] = true
	}
	for typ, info := range t.types {
		if len(info.residues) != len(want) {
			continue
		}
		ok := true
		for _, r := range info.residues {
			if !want[r] {
				ok = false
				break
			}
		}
		if ok {
			return typ, true
		}
	}
	return 0, false
}

// decomposeOnto resolves painting contact "over" onto contact "have" on
// plane when no stacked type exists: on a plane where have has a
// residue the result is over, otherwise have. It is only reached for
// planes in over's mask; on every other plane defaultPaint leaves have
// itself in place, so have is not reduced to its residues there.
func (t *Table) decomposeOnto(have, over tile.TileType, plane tile.Plane) tile.TileType {
	if res, ok := t.residueOn(have, plane); ok {
		_ = res
		return over
	}
	return have
}

// Compose checks the tech file's "compose T A B" directive: it returns
// an error unless plane-mask(A) | plane-mask(B) == plane-mask(T). It
// records no table entry, so painting A and B together does not
// produce T.
func (t *Table) Compose(result, a, b tile.TileType) error {
	union := t.planeMask(a).Union(t.planeMask(b))
	if union != t.planeMask(result) {
		return fmt.Errorf("compose: compose %d = %d %d: plane masks don't match (%v vs %v)", result, a, b, union, t.planeMask(result))
	}
	return nil
}

// Decompose checks the "decompose T A B" directive (the inverse of
// Compose): it returns an error unless the union of A's and B's plane
// masks is a subset of T's. Like Compose it records no table entry.
func (t *Table) Decompose(result, a, b tile.TileType) error {
	union := t.planeMask(a).Union(t.planeMask(b))
	if union&^t.planeMask(result) != 0 {
		return fmt.Errorf("compose: decompose %d = %d %d: A|B not subset of T's planes", result, a, b)
	}
	return nil
}

// OverridePaint sets an explicit (non-default) paint-table entry, per
// the tech file's "paint T1 T2 Tres [plane]" directive. If plane < 0,
// every plane in Tres's (or, absent Tres, T1's) mask is set.
func (t *Table) OverridePaint(have, arg, result tile.TileType, plane tile.Plane) {
	for _, p := range t.affectedPlanes(have, result, plane) {
		t.paint[key{have, arg, p}] = entry{result: result, isDefault: false}
	}
}

// OverrideErase sets an explicit erase-table entry, symmetric with
// OverridePaint.
func (t *Table) OverrideErase(have, arg, result tile.TileType, plane tile.Plane) {
	for _, p := range t.affectedPlanes(have, result, plane) {
		t.erase[key{have, arg, p}] = entry{result: result, isDefault: false}
	}
}

func (t *Table) affectedPlanes(have, result tile.TileType, plane tile.Plane) []tile.Plane {
	if plane >= 0 {
		return []tile.Plane{plane}
	}
	mask := t.planeMask(result)
	if mask == 0 {
		mask = t.planeMask(have)
	}
	return mask.Planes()
}

// Lock marks typ (a contact type) as locked: erasing one of its
// residues leaves the contact untouched (locking).
func (t *Table) Lock(typ tile.TileType) error {
	info, ok := t.types[typ]
	if !ok || len(info.residues) == 0 {
		return fmt.Errorf("compose: Lock: %d is not a registered contact", typ)
	}
	info.locked = true
	for _, r := range info.residues {
		t.erase[key{typ, r.Type, r.Plane}] = entry{result: typ, isDefault: false}
	}
	return nil
}

// Paint implements tile.Composer.
func (t *Table) Paint(have, arg tile.TileType, plane tile.Plane) tile.TileType {
	if e, ok := t.paint[key{have, arg, plane}]; ok {
		return e.result
	}
	return t.defaultPaint(have, arg, plane)
}

// Erase implements tile.Composer.
func (t *Table) Erase(have, arg tile.TileType, plane tile.Plane) tile.TileType {
	if e, ok := t.erase[key{have, arg, plane}]; ok {
		return e.result
	}
	return t.defaultErase(have, arg, plane)
}

// Validate checks the invariant every composition result must satisfy:
// for every (H,P,plane) the paint/erase result is H, Space, a residue
// of H on that plane, or a type whose plane-mask contains that plane.
// It returns every violation found.
func (t *Table) Validate() []string {
	var problems []string
	check := func(tbl map[key]entry, op string) {
		for k, e := range tbl {
			if e.result == k.have || e.result == tile.Space {
				continue
			}
			if res, ok := t.residueOn(k.have, k.plane); ok && res == e.result {
				continue
			}
			if t.planeMask(e.result).Has(k.plane) {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s(%d,%d,plane %d) = %d violates invariant", op, k.have, k.arg, k.plane, e.result))
		}
	}
	check(t.paint, "paint")
	check(t.erase, "erase")
	return problems
}
