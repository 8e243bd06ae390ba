package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name of the per-site settings file looked up in
// the current and home directories.
const DefaultConfigFile = ".webcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads the per-site settings at path.
//
// Unknown keys are rejected so that a misspelled setting does not silently
// fall back to the default. Host keys are lower-cased to match lookups.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cf, err := parseFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cf, nil
}

// parseFile decodes a settings document over NewFile and checks it.
func parseFile(data []byte) (*File, error) {
	cf := NewFile()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, site := range cf.Sites {
		if site.CrawlDelay < 0 {
			return nil, fmt.Errorf("site %s: %w", host, ErrInvalidCrawlDelay)
		}
		sites[strings.ToLower(host)] = site
	}
	cf.Sites = sites

	if cf.Defaults.CrawlDelay < 0 {
		return nil, fmt.Errorf("defaults: %w", ErrInvalidCrawlDelay)
	}
	return cf, nil
}

// FindConfigFile returns the settings file to load, or "" when there is
// none. An explicit configPath is used only if it exists; otherwise
// DefaultConfigFile is looked up in the working directory and then in the
// home directory.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	for _, dir := range searchDirs() {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// searchDirs lists the directories searched for DefaultConfigFile.
func searchDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
