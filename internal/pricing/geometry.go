package pricing

import (
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
)

// Geometry holds the measurements a service quantity can bill against.
// A nil field means the measurement is unknown for the group.
type Geometry struct {
	Floor     *float64
	Ceiling   *float64
	Walls     *float64
	Perimeter *float64
}

// Overrides carries the manual per-measure areas a user can enter instead
// of full dimensions. LegacyM2 is the old single-area field; it only feeds
// floor and ceiling, and only when nothing more specific is known.
type Overrides struct {
	Floor     *float64
	Ceiling   *float64
	Walls     *float64
	Perimeter *float64
	LegacyM2  *float64
}

// ComputeGeometry derives all measurements from full dimensions. When
// length or width is absent or zero no measurement is derivable and every
// field stays nil; walls additionally require a height.
func ComputeGeometry(length, width, height *float64) Geometry {
	if length == nil || width == nil || *length == 0 || *width == 0 {
		return Geometry{}
	}

	floor := *length * *width
	ceiling := floor
	perimeter := 2 * (*length + *width)

	g := Geometry{
		Floor:     &floor,
		Ceiling:   &ceiling,
		Perimeter: &perimeter,
	}

	if height != nil && *height != 0 {
		walls := perimeter * *height
		g.Walls = &walls
	}

	return g
}

// MergeAreas resolves the final geometry for quantity resolution. An
// explicit manual override always wins over a derived value; the legacy
// single override fills floor and ceiling only when neither a specific
// override nor a derived value exists for that measure.
func MergeAreas(derived Geometry, ov Overrides) Geometry {
	merged := Geometry{
		Floor:     pick(ov.Floor, derived.Floor),
		Ceiling:   pick(ov.Ceiling, derived.Ceiling),
		Walls:     pick(ov.Walls, derived.Walls),
		Perimeter: pick(ov.Perimeter, derived.Perimeter),
	}

	if merged.Floor == nil && ov.LegacyM2 != nil {
		merged.Floor = ov.LegacyM2
	}
	if merged.Ceiling == nil && ov.LegacyM2 != nil {
		merged.Ceiling = ov.LegacyM2
	}

	return merged
}

func pick(override, derived *float64) *float64 {
	if override != nil {
		return override
	}
	return derived
}

// GroupAreas derives and merges the billable geometry for a group.
func GroupAreas(g models.Group) Geometry {
	derived := ComputeGeometry(g.Length, g.Width, g.Height)
	return MergeAreas(derived, Overrides{
		Floor:     g.ManualFloor,
		Ceiling:   g.ManualCeiling,
		Walls:     g.ManualWalls,
		Perimeter: g.ManualPerimeter,
		LegacyM2:  g.ManualM2,
	})
}

// CacheDerived writes the full-dimension derivation back onto the group's
// snapshot fields. Manual overrides are deliberately not mixed in here.
func CacheDerived(g *models.Group) {
	derived := ComputeGeometry(g.Length, g.Width, g.Height)
	g.FloorM2 = derived.Floor
	g.CeilingM2 = derived.Ceiling
	g.WallsM2 = derived.Walls
}

// ResolveQuantity turns a service's quantity source into its billable
// quantity. A measurement that is unknown, or that resolves to exactly
// zero, falls back to the manually entered quantity. The zero fallback
// matches the historical behavior and is load-bearing for old quotes.
func ResolveQuantity(source enums.QuantitySource, areas Geometry, manualFallback float64) float64 {
	switch source {
	case enums.QuantitySourceManual:
		return manualFallback
	case enums.QuantitySourceFloor:
		return orFallback(areas.Floor, manualFallback)
	case enums.QuantitySourceCeiling:
		return orFallback(areas.Ceiling, manualFallback)
	case enums.QuantitySourceWalls:
		return orFallback(areas.Walls, manualFallback)
	case enums.QuantitySourcePerimeter:
		return orFallback(areas.Perimeter, manualFallback)
	case enums.QuantitySourceWallsCeiling:
		sum := deref(areas.Walls) + deref(areas.Ceiling)
		if sum == 0 {
			return manualFallback
		}
		return sum
	default:
		return manualFallback
	}
}

func orFallback(v *float64, fallback float64) float64 {
	if v == nil || *v == 0 {
		return fallback
	}
	return *v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
