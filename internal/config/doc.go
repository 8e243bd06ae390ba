// Package config provides configuration structures and utilities for webcrawl.
// It defines the crawl limits, politeness settings, storage selection and
// report preferences, plus the optional YAML file with per-site settings.
package config
