package enums

import "fmt"

// QuantitySource selects how a service line derives its billable quantity.
type QuantitySource string

const (
	QuantitySourceManual       QuantitySource = "manual"
	QuantitySourceFloor        QuantitySource = "floor"
	QuantitySourceCeiling      QuantitySource = "ceiling"
	QuantitySourceWalls        QuantitySource = "walls"
	QuantitySourceWallsCeiling QuantitySource = "walls_ceiling"
	QuantitySourcePerimeter    QuantitySource = "perimeter"
)

var validQuantitySources = []QuantitySource{
	QuantitySourceManual,
	QuantitySourceFloor,
	QuantitySourceCeiling,
	QuantitySourceWalls,
	QuantitySourceWallsCeiling,
	QuantitySourcePerimeter,
}

// IsValid reports whether the value matches the canonical quantity source set.
func (q QuantitySource) IsValid() bool {
	for _, candidate := range validQuantitySources {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuantitySource converts raw input into QuantitySource.
func ParseQuantitySource(value string) (QuantitySource, error) {
	for _, candidate := range validQuantitySources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quantity source %q", value)
}
