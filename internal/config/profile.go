// internal/config/profile.go
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Profile is the persisted form of a CrawlConfig. The JSON keys are fixed
// and every one of them must be present when loading.
type Profile struct {
	URL                 string `json:"url"`
	LinkPattern         string `json:"link_pattern"`
	TitleSelector       string `json:"product_title_selector"`
	ImageSelector       string `json:"product_image_selector"`
	DescriptionSelector string `json:"product_description_selector"`
	SpecsSelector       string `json:"product_specs_selector"`
}

// profileKeys lists the required keys in the order they are checked.
var profileKeys = []string{
	"url",
	"link_pattern",
	"product_title_selector",
	"product_image_selector",
	"product_description_selector",
	"product_specs_selector",
}

// MissingFieldError reports a profile key that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("profile is missing required field %q", e.Field)
}

// ProfileLoadError wraps any failure to read or decode a profile.
type ProfileLoadError struct {
	Path string
	Err  error
}

func (e *ProfileLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load profile: %v", e.Err)
	}
	return fmt.Sprintf("failed to load profile %s: %v", e.Path, e.Err)
}

func (e *ProfileLoadError) Unwrap() error { return e.Err }

// NewProfile converts a CrawlConfig to its persisted form.
func NewProfile(cfg CrawlConfig) Profile {
	return Profile{
		URL:                 cfg.SeedURL,
		LinkPattern:         cfg.LinkSelector,
		TitleSelector:       cfg.TitleSelector,
		ImageSelector:       cfg.ImageSelector,
		DescriptionSelector: cfg.DescriptionSelector,
		SpecsSelector:       cfg.SpecsSelector,
	}
}

// CrawlConfig converts the profile into a run configuration.
func (p Profile) CrawlConfig() CrawlConfig {
	return CrawlConfig{
		SeedURL:             p.URL,
		LinkSelector:        p.LinkPattern,
		TitleSelector:       p.TitleSelector,
		ImageSelector:       p.ImageSelector,
		DescriptionSelector: p.DescriptionSelector,
		SpecsSelector:       p.SpecsSelector,
	}
}

// LoadProfile reads a profile from a JSON file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, &ProfileLoadError{Path: path, Err: err}
	}
	p, err := DecodeProfile(data)
	if err != nil {
		return Profile{}, &ProfileLoadError{Path: path, Err: err}
	}
	return p, nil
}

// LoadProfileFromReader reads a profile from an io.Reader.
func LoadProfileFromReader(r io.Reader) (Profile, error) {
	if r == nil {
		return Profile{}, &ProfileLoadError{Err: fmt.Errorf("reader cannot be nil")}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, &ProfileLoadError{Err: err}
	}
	p, err := DecodeProfile(data)
	if err != nil {
		return Profile{}, &ProfileLoadError{Err: err}
	}
	return p, nil
}

// DecodeProfile decodes profile JSON. Absent keys yield a *MissingFieldError
// and non-string values a decode error; no defaults are substituted.
func DecodeProfile(data []byte) (Profile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("invalid profile JSON: %w", err)
	}

	values := make(map[string]string, len(profileKeys))
	for _, key := range profileKeys {
		msg, ok := raw[key]
		if !ok {
			return Profile{}, &MissingFieldError{Field: key}
		}
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return Profile{}, fmt.Errorf("profile field %q must be a string: %w", key, err)
		}
		values[key] = s
	}

	return Profile{
		URL:                 values["url"],
		LinkPattern:         values["link_pattern"],
		TitleSelector:       values["product_title_selector"],
		ImageSelector:       values["product_image_selector"],
		DescriptionSelector: values["product_description_selector"],
		SpecsSelector:       values["product_specs_selector"],
	}, nil
}

// SaveProfile writes a profile as JSON, creating parent directories.
func SaveProfile(path string, p Profile) error {
	if path == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
