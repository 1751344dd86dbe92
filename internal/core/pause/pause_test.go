package pause

import (
	"reflect"
	"testing"
	"time"

	"github.com/example/prodtrack/internal/apperr"
)

func TestCanDeclarePause(t *testing.T) {
	tests := []struct {
		name        string
		ctx         DeclareContext
		wantAllowed bool
	}{
		{"raw material with ref", DeclareContext{Category: CategoryRawMaterial, References: []string{"REF1"}}, true},
		{"raw material without ref", DeclareContext{Category: CategoryRawMaterial}, false},
		{"maintenance with empty phases", DeclareContext{Category: CategoryMaintenance, References: []string{}}, false},
		{"maintenance with blank phase", DeclareContext{Category: CategoryMaintenance, References: []string{"  "}}, false},
		{"maintenance with phase", DeclareContext{Category: CategoryMaintenance, References: []string{"PH-2"}}, true},
		{"quality with product", DeclareContext{Category: CategoryQuality, References: []string{"P-100"}}, true},
		{"quality without product", DeclareContext{Category: CategoryQuality}, false},
		{"workforce bare", DeclareContext{Category: CategoryWorkforce}, true},
		{"method bare", DeclareContext{Category: CategoryMethod}, true},
		{"environment bare", DeclareContext{Category: CategoryEnvironment}, true},
		{"workforce with refs", DeclareContext{Category: CategoryWorkforce, References: []string{"X"}}, false},
		{"unknown category", DeclareContext{Category: "yield"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanDeclarePause(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Fatalf("CanDeclarePause() Allowed = %v, want %v (%s)", result.Allowed, tt.wantAllowed, result.Reason)
			}
			if !tt.wantAllowed && apperr.KindOf(result.Error()) != apperr.KindInvalidArgument {
				t.Errorf("kind = %q, want InvalidArgument", apperr.KindOf(result.Error()))
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"raw_material", CategoryRawMaterial, false},
		{"raw-material", CategoryRawMaterial, false},
		{"M4", CategoryMaintenance, false},
		{" Quality ", CategoryQuality, false},
		{"environment", CategoryEnvironment, false},
		{"yield", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewDetail(t *testing.T) {
	d, err := NewDetail(CategoryMaintenance, []string{"PH-1", "PH-1", " PH-2 "})
	if err != nil {
		t.Fatalf("NewDetail() error = %v", err)
	}
	m, ok := d.(Maintenance)
	if !ok {
		t.Fatalf("NewDetail() = %T, want Maintenance", d)
	}
	if !reflect.DeepEqual(m.Phases, []string{"PH-1", "PH-2"}) {
		t.Errorf("Phases = %v", m.Phases)
	}

	if _, err := NewDetail(CategoryMethod, []string{"X"}); err == nil {
		t.Error("NewDetail(method, refs) error = nil, want error")
	}
	if _, err := NewDetail("bogus", nil); err == nil {
		t.Error("NewDetail(bogus) error = nil, want error")
	}
}

func TestListsRoundTrip(t *testing.T) {
	rm, ph, pr := Lists(Quality{ProductRefs: []string{"P1"}})
	if rm != nil || ph != nil || !reflect.DeepEqual(pr, []string{"P1"}) {
		t.Errorf("Lists(Quality) = %v %v %v", rm, ph, pr)
	}

	// Stored rows may carry lists that do not match their category; only the
	// matching list survives.
	d := FromLists(CategoryRawMaterial, []string{"RM1"}, []string{"PH9"}, nil)
	if !reflect.DeepEqual(d.References(), []string{"RM1"}) {
		t.Errorf("FromLists().References() = %v", d.References())
	}
	if FromLists(CategoryWorkforce, []string{"RM1"}, nil, nil).References() != nil {
		t.Error("workforce detail should carry no references")
	}
}

func TestWithReferences(t *testing.T) {
	d, err := WithReferences(RawMaterial{Refs: []string{"A"}}, []string{"B"})
	if err != nil {
		t.Fatalf("WithReferences() error = %v", err)
	}
	if !reflect.DeepEqual(d.References(), []string{"B"}) {
		t.Errorf("References() = %v, want [B]", d.References())
	}

	same, err := WithReferences(Maintenance{Phases: []string{"PH"}}, nil)
	if err != nil || !reflect.DeepEqual(same.References(), []string{"PH"}) {
		t.Errorf("empty update should leave detail unchanged, got %v, %v", same, err)
	}

	if _, err := WithReferences(Environment{}, []string{"X"}); err == nil {
		t.Error("WithReferences(environment) error = nil, want error")
	}
}

func TestClose(t *testing.T) {
	start := time.Date(2026, 3, 2, 6, 0, 10, 0, time.UTC)
	now := start.Add(60 * time.Second)

	closed := Close(CloseInput{Start: start, Now: now, RatePerUnit: 5, HasRate: true})
	if closed.DurationSeconds != 60 || closed.LostUnits != 12 {
		t.Errorf("Close() = %+v, want 60s / 12 units", closed)
	}
	if !closed.End.Equal(now) {
		t.Errorf("End = %v, want %v", closed.End, now)
	}

	noRate := Close(CloseInput{Start: start, Now: now})
	if noRate.LostUnits != 0 {
		t.Errorf("LostUnits without rate = %d, want 0", noRate.LostUnits)
	}
}
