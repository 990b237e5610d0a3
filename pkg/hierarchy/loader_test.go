package hierarchy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const loaderCatalogJSON = `{
	"ITW>Automotive OEM>": {
		"ITW>Automotive OEM>Fasteners & Interior>": {
			"ITW>Automotive OEM>Fasteners & Interior>Europe>": {
				"ITW>Automotive OEM>Fasteners & Interior>Europe>Deltar Europe>": ["Genay (France)"]
			}
		}
	}
}`

const loaderAliasJSON = `{"Deltar EU": "Automotive OEM>Fasteners & Interior>Europe>Deltar Europe"}`

func TestLoaderFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog":
			w.Write([]byte(loaderCatalogJSON))
		case "/aliases":
			w.Write([]byte(loaderAliasJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(LoaderConfig{
		CatalogURL: srv.URL + "/catalog",
		AliasesURL: srv.URL + "/aliases",
	})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := l.Snapshot()
	if snap == nil {
		t.Fatal("expected a snapshot after Load")
	}
	if got := snap.Catalog.AllPlants(); len(got) != 1 || got[0] != "Genay (France)" {
		t.Errorf("loaded plants = %v", got)
	}
	if got := snap.Aliases.Resolve("Deltar EU"); got != "Automotive OEM>Fasteners & Interior>Europe>Deltar Europe" {
		t.Errorf("alias resolution through snapshot = %q", got)
	}
}

func TestLoaderFromFiles(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	aliasPath := filepath.Join(dir, "aliases.json")
	if err := os.WriteFile(catalogPath, []byte(loaderCatalogJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(aliasPath, []byte(loaderAliasJSON), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(LoaderConfig{CatalogFile: catalogPath, AliasesFile: aliasPath})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap := l.Snapshot(); snap == nil || len(snap.Catalog.AllPlants()) != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestLoaderKeepsSnapshotOnFailure(t *testing.T) {
	var fail bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/catalog" {
			w.Write([]byte(loaderCatalogJSON))
		} else {
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	l := NewLoader(LoaderConfig{
		CatalogURL: srv.URL + "/catalog",
		AliasesURL: srv.URL + "/aliases",
	})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("initial Load failed: %v", err)
	}
	first := l.Snapshot()

	fail = true
	if err := l.Load(context.Background()); err == nil {
		t.Fatal("expected Load to fail")
	}
	if l.Snapshot() != first {
		t.Error("failed reload must keep the previous snapshot")
	}
}

func TestLoaderMissingCatalogSource(t *testing.T) {
	l := NewLoader(LoaderConfig{CatalogFile: "/nonexistent/catalog.json"})
	if err := l.Load(context.Background()); err == nil {
		t.Error("expected error for unreadable catalog file")
	}
	if l.Snapshot() != nil {
		t.Error("snapshot must stay nil after failed first load")
	}
}
