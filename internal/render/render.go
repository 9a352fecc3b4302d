// Package render writes the filtered hierarchy as a terminal tree, JSON or
// YAML.
package render

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// Format is an output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", name)
	}
}

// Document is the machine-readable form of a view
type Document struct {
	FetchedAt  *time.Time         `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
	Query      filter.Query       `json:"query" yaml:"query"`
	IssueCount int                `json:"issue_count" yaml:"issue_count"`
	Groups     []models.TreeGroup `json:"groups" yaml:"groups"`
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// YAML writes v as YAML
func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// Write renders doc in the given format
func Write(w io.Writer, format Format, doc Document, opts TextOptions) error {
	switch format {
	case FormatJSON:
		return JSON(w, doc)
	case FormatYAML:
		return YAML(w, doc)
	default:
		opts.SearchText = doc.Query.SearchText
		return Text(w, doc.Groups, opts)
	}
}
