package spec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a specification file.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf(
		"unknown specification format for %s", path,
	)
}

// Decode reads a Document. JSON is decoded as YAML, of which it
// is a subset.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatXML:
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, &SpecificationError{
				Message: "malformed XML", Err: err,
			}
		}
	case FormatYAML, FormatJSON:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, &SpecificationError{
				Message: "malformed " + strings.ToUpper(string(format)),
				Err:     err,
			}
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &doc, nil
}

// LoadFile reads, decodes and builds the specification at path.
func LoadFile(path string, opts ...BuilderOption) (*Specification, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specification %s: %w", path, err)
	}

	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	s, err := NewBuilder(opts...).Build(doc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.Source = path
	return s, nil
}
