// SPDX-License-Identifier: MIT

// Package biocyc parses BioCyc attribute-value flat files (pathways.dat,
// compounds.dat and friends).
package biocyc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Attr is one attribute-value pair of a frame.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Frame is one record of a BioCyc .dat file, identified by its UNIQUE-ID.
type Frame struct {
	ID    string `json:"id"`
	Attrs []Attr `json:"attrs"`
}

// Get returns the first value of the named attribute.
func (f *Frame) Get(name string) (string, bool) {
	for _, a := range f.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// GetAll returns every value of the named attribute in file order.
func (f *Frame) GetAll(name string) []string {
	var out []string
	for _, a := range f.Attrs {
		if a.Name == name {
			out = append(out, a.Value)
		}
	}
	return out
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open biocyc file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	frames, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return frames, nil
}

// Parse reads a BioCyc attribute-value file. '#' lines are comments,
// "ATTRIBUTE - VALUE" lines add attributes, lines starting with '/' extend
// the previous value, and "//" terminates a frame.
func Parse(r io.Reader) ([]Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		frames  []Frame
		current Frame
		open    bool
	)

	flush := func() {
		if open && (current.ID != "" || len(current.Attrs) > 0) {
			frames = append(frames, current)
		}
		current = Frame{}
		open = false
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case line == "//":
			flush()
		case strings.HasPrefix(line, "/"):
			// continuation of the previous attribute value
			if n := len(current.Attrs); n > 0 {
				current.Attrs[n-1].Value += " " + strings.TrimSpace(line[1:])
			}
		default:
			name, value, ok := strings.Cut(line, " - ")
			if !ok {
				continue
			}
			open = true
			if name == "UNIQUE-ID" && current.ID == "" {
				current.ID = value
			}
			current.Attrs = append(current.Attrs, Attr{Name: name, Value: value})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("biocyc: read: %w", err)
	}
	flush()

	return frames, nil
}
