// Package pause contains the pure business logic for pause episodes:
// the cause taxonomy, category-specific details and closing arithmetic.
package pause

import (
	"fmt"
	"strings"
)

// Category is the top-level cause of a stoppage.
type Category string

const (
	CategoryRawMaterial Category = "raw_material"
	CategoryWorkforce   Category = "workforce"
	CategoryMethod      Category = "method"
	CategoryMaintenance Category = "maintenance"
	CategoryQuality     Category = "quality"
	CategoryEnvironment Category = "environment"
)

// Categories lists every category in taxonomy order.
var Categories = []Category{
	CategoryRawMaterial,
	CategoryWorkforce,
	CategoryMethod,
	CategoryMaintenance,
	CategoryQuality,
	CategoryEnvironment,
}

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// RequiresReferences reports whether pauses of this category must name references.
func (c Category) RequiresReferences() bool {
	return c.ReferenceKind() != RefNone
}

// ReferenceKind returns which reference catalog the category points into.
func (c Category) ReferenceKind() ReferenceKind {
	switch c {
	case CategoryRawMaterial:
		return RefRawMaterial
	case CategoryMaintenance:
		return RefPhase
	case CategoryQuality:
		return RefProduct
	}
	return RefNone
}

// Label is the operator-facing name.
func (c Category) Label() string {
	switch c {
	case CategoryRawMaterial:
		return "Raw material"
	case CategoryWorkforce:
		return "Workforce"
	case CategoryMethod:
		return "Method"
	case CategoryMaintenance:
		return "Maintenance"
	case CategoryQuality:
		return "Quality"
	case CategoryEnvironment:
		return "Environment"
	}
	return string(c)
}

// ParseCategory accepts the canonical value or a few common spellings
// ("raw-material", "M1".."M6").
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	switch norm {
	case "m1", "matiere", "material":
		return CategoryRawMaterial, nil
	case "m2", "absence", "main_oeuvre":
		return CategoryWorkforce, nil
	case "m3", "methode":
		return CategoryMethod, nil
	case "m4", "maintenance_machine":
		return CategoryMaintenance, nil
	case "m5", "qualite":
		return CategoryQuality, nil
	case "m6", "environnement":
		return CategoryEnvironment, nil
	}
	c := Category(norm)
	if !c.Valid() {
		return "", fmt.Errorf("unknown pause category %q", s)
	}
	return c, nil
}

// ReferenceKind names the catalog a reference list belongs to.
type ReferenceKind string

const (
	RefNone        ReferenceKind = ""
	RefRawMaterial ReferenceKind = "raw_material"
	RefPhase       ReferenceKind = "phase"
	RefProduct     ReferenceKind = "product"
)
