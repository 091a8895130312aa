package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_JSON(t *testing.T) {
	descriptors, err := Load(filepath.Join("testdata", "MovieData.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(descriptors) != 2 {
		t.Fatalf("Expected 2 descriptors, got %d", len(descriptors))
	}

	first := descriptors[0]
	if first.Title != "Big Buck Bunny" {
		t.Errorf("Expected title 'Big Buck Bunny', got %s", first.Title)
	}
	if first.Subtitle != "By Blender Foundation" {
		t.Errorf("Expected subtitle 'By Blender Foundation', got %s", first.Subtitle)
	}
	if first.Video() != "http://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4" {
		t.Errorf("Unexpected video URL %s", first.Video())
	}
	if descriptors[1].Title != "Elephant Dream" {
		t.Errorf("Expected order to be preserved, got %s at index 1", descriptors[1].Title)
	}
}

func TestLoad_YAML(t *testing.T) {
	descriptors, err := Load(filepath.Join("testdata", "catalog.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(descriptors) != 1 {
		t.Fatalf("Expected 1 descriptor, got %d", len(descriptors))
	}
	if descriptors[0].Thumbnail() != "http://commondatastorage.googleapis.com/gtv-videos-bucket/sample/images/Sintel.jpg" {
		t.Errorf("Unexpected thumbnail URL %s", descriptors[0].Thumbnail())
	}
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.json")},
		{"malformed json", filepath.Join("testdata", "malformed.json")},
		{"empty list", write("empty.json", "[]")},
		{"wrong shape", write("object.json", `{"title":"A"}`)},
		{"missing thumb", write("nothumb.json", `[{"title":"A","movie":"v1"}]`)},
		{"bad movie uri", write("badmovie.json", `[{"title":"A","thumb":"u1","movie":"%zz"}]`)},
		{"malformed yaml", write("bad.yaml", "- title: [unterminated")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrCatalogLoad) {
				t.Errorf("Expected ErrCatalogLoad, got %v", err)
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got %T", err)
			}
			if loadErr.Path != tt.path {
				t.Errorf("Expected path %s, got %s", tt.path, loadErr.Path)
			}
		})
	}
}

func TestLoad_MissingFileUnwrapsNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	descriptors, err := Load(filepath.Join("testdata", "MovieData.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		tag  int
		ok   bool
		want string
	}{
		{0, true, "Big Buck Bunny"},
		{1, true, "Elephant Dream"},
		{2, false, ""},
		{-1, false, ""},
	}

	for _, tt := range tests {
		got, ok := Lookup(descriptors, tt.tag)
		if ok != tt.ok {
			t.Errorf("Lookup(%d) ok = %v, expected %v", tt.tag, ok, tt.ok)
		}
		if got.Title != tt.want {
			t.Errorf("Lookup(%d) title = %q, expected %q", tt.tag, got.Title, tt.want)
		}
	}
}
