// Package catalog loads the fixed list of content descriptors that reference
// images are fetched for. The order of the list defines each entry's tag.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"overlayserver/internal/models"
)

// DefaultName is the catalog resource looked up when no path is configured.
const DefaultName = "MovieData.json"

// ErrCatalogLoad matches every catalog load failure.
var ErrCatalogLoad = errors.New("catalog load failed")

// LoadError reports why the catalog could not be loaded. It is fatal to startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCatalogLoad) match any LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrCatalogLoad }

// entry is the on-disk record shape.
type entry struct {
	Description string `json:"description" yaml:"description"`
	Subtitle    string `json:"subtitle" yaml:"subtitle"`
	Movie       string `json:"movie" yaml:"movie"`
	Thumb       string `json:"thumb" yaml:"thumb"`
	Title       string `json:"title" yaml:"title"`
}

// Load reads and decodes the catalog at path. JSON is the default format;
// .yaml and .yml files are decoded as YAML.
func Load(path string) ([]models.ContentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to decode: %w", err)}
	}

	descriptors, err := toDescriptors(entries)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return descriptors, nil
}

func toDescriptors(entries []entry) ([]models.ContentDescriptor, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog is empty")
	}

	descriptors := make([]models.ContentDescriptor, 0, len(entries))
	for i, e := range entries {
		thumb, err := parseURI(e.Thumb)
		if err != nil {
			return nil, fmt.Errorf("entry %d: thumb: %w", i, err)
		}
		movie, err := parseURI(e.Movie)
		if err != nil {
			return nil, fmt.Errorf("entry %d: movie: %w", i, err)
		}

		descriptors = append(descriptors, models.ContentDescriptor{
			Title:        e.Title,
			Subtitle:     e.Subtitle,
			Description:  e.Description,
			ThumbnailURL: thumb,
			VideoURL:     movie,
		})
	}
	return descriptors, nil
}

func parseURI(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %q: %w", raw, err)
	}
	return u, nil
}

// Lookup returns the descriptor for tag, or false when tag is out of range.
func Lookup(descriptors []models.ContentDescriptor, tag int) (models.ContentDescriptor, bool) {
	if tag < 0 || tag >= len(descriptors) {
		return models.ContentDescriptor{}, false
	}
	return descriptors[tag], true
}
