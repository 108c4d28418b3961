// Package manifest reads declarative descriptions of event types,
// factories and extensions.
//
// A manifest is a YAML or TOML document:
//
//	scripts:
//	  - name: library.Summaries
//	    file: summaries.lua
//	types:
//	  - name: library.Book
//	    extends: [eventsys.Event]
//	    methods:
//	      - {name: getTitle, returns: string}
//	  - name: library.BookFactory
//	    methods:
//	      - name: create
//	        params: [{name: title, type: string}]
//	        returns: library.Book
//	extensions:
//	  - {base: library.Book, implement: library.Summary, script: library.Summaries}
//	factories: [library.BookFactory]
//
// Build resolves the document into descriptors and specifications.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat indicates a file extension with no decoder.
var ErrUnknownFormat = errors.New("unknown manifest format")

// Document is the decoded form of a manifest file.
type Document struct {
	Scripts    []Script     `yaml:"scripts" toml:"scripts"`
	Types      []Type       `yaml:"types" toml:"types"`
	Extensions []Extension  `yaml:"extensions" toml:"extensions"`
	Factories  []string     `yaml:"factories" toml:"factories"`
	Events     []EventClass `yaml:"events" toml:"events"`
}

// Script names Lua source, either from a file relative to the manifest or
// inline.
type Script struct {
	Name   string `yaml:"name" toml:"name"`
	File   string `yaml:"file" toml:"file"`
	Source string `yaml:"source" toml:"source"`
}

// Type declares an interface. Impl names a script providing static
// implementations of its methods, used by factories for delegation.
type Type struct {
	Name    string   `yaml:"name" toml:"name"`
	Extends []string `yaml:"extends" toml:"extends"`
	Methods []Method `yaml:"methods" toml:"methods"`
	Impl    string   `yaml:"impl" toml:"impl"`
}

// Method declares an abstract method.
type Method struct {
	Name       string         `yaml:"name" toml:"name"`
	Params     []Param        `yaml:"params" toml:"params"`
	Returns    string         `yaml:"returns" toml:"returns"`
	Extensions []ExtensionRef `yaml:"extensions" toml:"extensions"`
}

// Param declares a method parameter. As overrides the property name the
// parameter binds to.
type Param struct {
	Name     string `yaml:"name" toml:"name"`
	As       string `yaml:"as" toml:"as"`
	Type     string `yaml:"type" toml:"type"`
	Mutable  bool   `yaml:"mutable" toml:"mutable"`
	Nullable bool   `yaml:"nullable" toml:"nullable"`
}

// ExtensionRef names an interface and the script implementing it. Either
// may be empty.
type ExtensionRef struct {
	Implement string `yaml:"implement" toml:"implement"`
	Script    string `yaml:"script" toml:"script"`
}

// Extension registers an extension for every implementation of Base.
type Extension struct {
	Base         string `yaml:"base" toml:"base"`
	ExtensionRef `yaml:",inline" toml:",inline"`
}

// EventClass requests an event implementation with additional properties.
type EventClass struct {
	Type       string         `yaml:"type" toml:"type"`
	Properties []Property     `yaml:"properties" toml:"properties"`
	Extensions []ExtensionRef `yaml:"extensions" toml:"extensions"`
}

// Property declares an additional property.
type Property struct {
	Name    string `yaml:"name" toml:"name"`
	Type    string `yaml:"type" toml:"type"`
	Mutable bool   `yaml:"mutable" toml:"mutable"`
}

// ParseError reports a manifest that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes data, choosing the format from the extension of name.
func Parse(name string, data []byte) (*Document, error) {
	var doc Document
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	if err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}
	return &doc, nil
}

// Load reads and decodes the manifest at path.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(path, data)
}

// Files returns the script files the document refers to, relative to dir.
func (d *Document) Files(dir string) []string {
	var files []string
	for _, s := range d.Scripts {
		if s.File != "" {
			files = append(files, resolvePath(dir, s.File))
		}
	}
	return files
}

func resolvePath(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}
