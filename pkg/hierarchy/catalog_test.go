package hierarchy

import (
	"reflect"
	"testing"
)

func TestParseCatalog(t *testing.T) {
	data := []byte(`{
		"ITW>Automotive OEM>": {
			"ITW>Automotive OEM>Fasteners & Interior>": {
				"ITW>Automotive OEM>Fasteners & Interior>North America>": {
					"ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>": ["Plant A", "Plant B"]
				}
			}
		}
	}`)
	cat, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	want := []string{"Plant A", "Plant B"}
	if got := cat.AllPlants(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllPlants = %v, want %v", got, want)
	}
	if got := cat.Segments(); len(got) != 1 || got[0] != "ITW>Automotive OEM>" {
		t.Errorf("Segments = %v", got)
	}
}

func TestParseCatalogInvalid(t *testing.T) {
	if _, err := ParseCatalog([]byte(`{"broken`)); err == nil {
		t.Error("expected error for malformed catalog JSON")
	}
}

func TestParseAliases(t *testing.T) {
	m, err := ParseAliases([]byte(`{"Deltar NA": "Automotive OEM>Deltar North America"}`))
	if err != nil {
		t.Fatalf("ParseAliases failed: %v", err)
	}
	if m["Deltar NA"] != "Automotive OEM>Deltar North America" {
		t.Errorf("unexpected alias table: %v", m)
	}

	if _, err := ParseAliases([]byte(`[1,2]`)); err == nil {
		t.Error("expected error for non-object alias JSON")
	}
}
