package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk policy document.
//
//	types:
//	  - name: SampleObj
//	    methods:
//	      - name: SwallowException
//	        suppress_failure: true
//	        fallback: "Free your mind."
type File struct {
	Types []TypeEntry `yaml:"types"`
}

// TypeEntry groups the method policies of one type.
type TypeEntry struct {
	Name    string        `yaml:"name"`
	Methods []MethodEntry `yaml:"methods"`
}

// MethodEntry is one method policy in a File.
type MethodEntry struct {
	Name            string `yaml:"name"`
	SuppressFailure bool   `yaml:"suppress_failure"`
	RecordFailure   bool   `yaml:"record_failure"`
	Fallback        any    `yaml:"fallback"`
}

// Descriptor returns the descriptor for the entry.
func (m MethodEntry) Descriptor() Descriptor {
	return Descriptor{
		SuppressFailure: m.SuppressFailure,
		RecordFailure:   m.RecordFailure,
		Fallback:        m.Fallback,
	}
}

// Parse decodes a policy document. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses the policy document at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks that every entry names a method and that no key repeats.
func (f *File) Validate() error {
	seen := make(map[MethodKey]struct{})
	for _, t := range f.Types {
		for _, m := range t.Methods {
			key := NewMethodKey(t.Name, m.Name)
			if key.IsZero() {
				return fmt.Errorf("policy file: type %q has a method without a name", t.Name)
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("policy file: duplicate policy for %s", key)
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

// Load registers every entry of f. Existing descriptors for the same keys
// are replaced.
func (r *Registry) Load(f *File) error {
	if f == nil {
		return nil
	}
	for _, t := range f.Types {
		methods := make(map[string]Descriptor, len(t.Methods))
		for _, m := range t.Methods {
			methods[m.Name] = m.Descriptor()
		}
		if err := r.RegisterType(t.Name, methods); err != nil {
			return err
		}
	}
	return nil
}
