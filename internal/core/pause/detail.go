package pause

import (
	"fmt"
	"strings"
)

// Detail is the category-specific payload of a pause. Exactly one variant
// exists per category, and only variants with a reference list carry one.
type Detail interface {
	Category() Category
	References() []string
	isDetail()
}

// RawMaterial pauses name the raw-material references that were missing.
type RawMaterial struct{ Refs []string }

// Workforce pauses carry no references.
type Workforce struct{}

// Method pauses carry no references.
type Method struct{}

// Maintenance pauses name the production phases under maintenance.
type Maintenance struct{ Phases []string }

// Quality pauses name the finished-product references affected.
type Quality struct{ ProductRefs []string }

// Environment pauses carry no references.
type Environment struct{}

func (RawMaterial) Category() Category { return CategoryRawMaterial }
func (Workforce) Category() Category   { return CategoryWorkforce }
func (Method) Category() Category      { return CategoryMethod }
func (Maintenance) Category() Category { return CategoryMaintenance }
func (Quality) Category() Category     { return CategoryQuality }
func (Environment) Category() Category { return CategoryEnvironment }

func (d RawMaterial) References() []string { return d.Refs }
func (Workforce) References() []string     { return nil }
func (Method) References() []string        { return nil }
func (d Maintenance) References() []string { return d.Phases }
func (d Quality) References() []string     { return d.ProductRefs }
func (Environment) References() []string   { return nil }

func (RawMaterial) isDetail() {}
func (Workforce) isDetail()   {}
func (Method) isDetail()      {}
func (Maintenance) isDetail() {}
func (Quality) isDetail()     {}
func (Environment) isDetail() {}

// NewDetail builds the variant for category with the given references.
// References for categories that take none are rejected.
func NewDetail(category Category, refs []string) (Detail, error) {
	refs = NormalizeRefs(refs)
	switch category {
	case CategoryRawMaterial:
		return RawMaterial{Refs: refs}, nil
	case CategoryMaintenance:
		return Maintenance{Phases: refs}, nil
	case CategoryQuality:
		return Quality{ProductRefs: refs}, nil
	case CategoryWorkforce, CategoryMethod, CategoryEnvironment:
		if len(refs) > 0 {
			return nil, fmt.Errorf("%s pauses do not take references", category)
		}
		switch category {
		case CategoryWorkforce:
			return Workforce{}, nil
		case CategoryMethod:
			return Method{}, nil
		default:
			return Environment{}, nil
		}
	}
	return nil, fmt.Errorf("unknown pause category %q", category)
}

// FromLists rebuilds a detail from the three stored reference columns, keeping
// only the list that matches the category.
func FromLists(category Category, rawMaterialRefs, phaseRefs, productRefs []string) Detail {
	switch category {
	case CategoryRawMaterial:
		return RawMaterial{Refs: rawMaterialRefs}
	case CategoryMaintenance:
		return Maintenance{Phases: phaseRefs}
	case CategoryQuality:
		return Quality{ProductRefs: productRefs}
	case CategoryWorkforce:
		return Workforce{}
	case CategoryMethod:
		return Method{}
	}
	return Environment{}
}

// Lists splits a detail into the three stored reference columns.
func Lists(d Detail) (rawMaterialRefs, phaseRefs, productRefs []string) {
	switch v := d.(type) {
	case RawMaterial:
		return v.Refs, nil, nil
	case Maintenance:
		return nil, v.Phases, nil
	case Quality:
		return nil, nil, v.ProductRefs
	}
	return nil, nil, nil
}

// WithReferences returns d with its reference list replaced. Variants without
// a reference list reject any references.
func WithReferences(d Detail, refs []string) (Detail, error) {
	refs = NormalizeRefs(refs)
	if len(refs) == 0 {
		return d, nil
	}
	switch d.(type) {
	case RawMaterial:
		return RawMaterial{Refs: refs}, nil
	case Maintenance:
		return Maintenance{Phases: refs}, nil
	case Quality:
		return Quality{ProductRefs: refs}, nil
	}
	return nil, fmt.Errorf("%s pauses do not take references", d.Category())
}

// NormalizeRefs trims, drops blanks and removes duplicates, preserving order.
func NormalizeRefs(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
