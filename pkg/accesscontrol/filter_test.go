package accesscontrol

import (
	"reflect"
	"testing"
)

type scopedRecord struct {
	ID   string
	Path string
}

func (r scopedRecord) Hierarchy() string { return r.Path }

var filterRecords = []scopedRecord{
	{"r1", "ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>Plant A"},
	{"r2", "ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>Plant B"},
	{"r3", "ITW>Automotive OEM>Fasteners & Interior>Europe>Deltar Europe>Genay (France)"},
	{"r4", "ITW>Polymers & Fluids>Fluids>North America>Pro Brands>Plant E"},
}

func ids(records []scopedRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterEnterpriseIsIdentity(t *testing.T) {
	access := &AccessControl{Scope: ScopeEnterprise, HierarchyString: "ITW>"}
	got := FilterByHierarchy(filterRecords, access)
	if !reflect.DeepEqual(got, filterRecords) {
		t.Errorf("enterprise filter must pass every record unchanged, got %v", ids(got))
	}
}

func TestFilterPrefixScopes(t *testing.T) {
	tests := []struct {
		name   string
		scope  AccessScope
		prefix string
		want   []string
	}{
		{
			"segment subtree",
			ScopeSegment,
			"ITW>Automotive OEM>",
			[]string{"r1", "r2", "r3"},
		},
		{
			"division subtree",
			ScopeDivision,
			"ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>",
			[]string{"r1", "r2"},
		},
		{
			"platform subtree",
			ScopePlatform,
			"ITW>Polymers & Fluids>Fluids>",
			[]string{"r4"},
		},
		{
			"no matches",
			ScopeDivision,
			"ITW>Construction Products>",
			[]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := &AccessControl{Scope: tt.scope, HierarchyString: tt.prefix}
			got := ids(FilterByHierarchy(filterRecords, access))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("filtered = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterPlantRequiresExactEquality(t *testing.T) {
	access := &AccessControl{
		Scope:           ScopePlant,
		HierarchyString: "ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>Plant A",
	}
	got := ids(FilterByHierarchy(filterRecords, access))
	if !reflect.DeepEqual(got, []string{"r1"}) {
		t.Errorf("plant filter = %v, want [r1]", got)
	}

	// A plant path that is a prefix of another record must not leak it in.
	access.HierarchyString = "ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>Plant"
	if got := FilterByHierarchy(filterRecords, access); len(got) != 0 {
		t.Errorf("prefix must not satisfy plant-scope equality, got %v", ids(got))
	}
}

func TestFilterNilAccess(t *testing.T) {
	if got := FilterByHierarchy(filterRecords, nil); got != nil {
		t.Errorf("nil access must filter everything, got %v", ids(got))
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	access := &AccessControl{Scope: ScopeSegment, HierarchyString: "ITW>Automotive OEM>"}
	got := ids(FilterByHierarchy(filterRecords, access))
	want := []string{"r1", "r2", "r3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("input order not preserved: %v", got)
	}
}
