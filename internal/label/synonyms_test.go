package label

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSynonymsResolveExisting(t *testing.T) {
	s := NewSynonyms(nil, false)
	res, ok := s.Resolve(Normalize("exercise"), Candidates([]string{"Health"}))
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Label != "Health" || res.Created {
		t.Errorf("resolution = %+v", res)
	}
}

func TestSynonymsMapOnlyMode(t *testing.T) {
	s := NewSynonyms(nil, false)
	res, ok := s.Resolve(Normalize("gym"), Candidates([]string{"Work"}))
	if ok {
		t.Fatalf("map-only mode created %+v", res)
	}
	if res.Family != "health" {
		t.Errorf("family = %q, want health", res.Family)
	}
}

func TestSynonymsCreateMode(t *testing.T) {
	s := NewSynonyms(nil, true)
	res, ok := s.Resolve(Normalize("Groceries"), Candidates([]string{"Work"}))
	if !ok || !res.Created {
		t.Fatalf("expected created label, got %+v ok=%v", res, ok)
	}
	if res.Label != "Errand" {
		t.Errorf("label = %q, want Errand", res.Label)
	}
}

func TestSynonymsUnknownPhrase(t *testing.T) {
	s := NewSynonyms(nil, true)
	if _, ok := s.Resolve(Normalize("quantum physics"), nil); ok {
		t.Error("unknown phrase should not resolve")
	}
}

func TestSynonymsOverride(t *testing.T) {
	s := NewSynonyms(map[string]string{"Gym": "Sports", "board games": "hobbies"}, true)
	if f, _ := s.Family("gym"); f != "sport" {
		t.Errorf("override family = %q, want sport", f)
	}
	if f, _ := s.Family("board game"); f != "hobby" {
		t.Errorf("extra family = %q, want hobby", f)
	}
	res, ok := s.Resolve("board game", Candidates([]string{"Hobbies"}))
	if !ok || res.Label != "Hobbies" {
		t.Errorf("resolution = %+v ok=%v", res, ok)
	}
}

func TestLoadSynonymFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	if err := os.WriteFile(path, []byte("pilates: health\nvet: errand\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := LoadSynonymFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if entries["pilates"] != "health" || entries["vet"] != "errand" {
		t.Errorf("entries = %v", entries)
	}

	if _, err := LoadSynonymFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
