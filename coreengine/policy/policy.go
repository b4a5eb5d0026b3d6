// Package policy holds per-method failure policies and the registry that
// resolves them.
//
// A Descriptor is attached to at most one MethodKey. Methods without a
// descriptor are not intercepted: their outcomes pass through unchanged.
package policy

import (
	"fmt"
	"strings"
)

// MethodKey identifies a target method: owning type plus method name.
type MethodKey struct {
	Type   string
	Method string
}

// NewMethodKey creates a MethodKey with surrounding whitespace trimmed.
func NewMethodKey(typeName, method string) MethodKey {
	return MethodKey{Type: strings.TrimSpace(typeName), Method: strings.TrimSpace(method)}
}

// ParseKey parses "Type.Method". The type is everything before the last dot,
// so package-qualified names such as "pkg.Service.Method" keep "pkg.Service"
// as the type. A string without a dot is a bare method name.
func ParseKey(s string) MethodKey {
	s = strings.TrimSpace(s)
	if s == "" {
		return MethodKey{}
	}

	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return MethodKey{Method: strings.Trim(s, ".")}
	}
	return NewMethodKey(s[:idx], s[idx+1:])
}

// String renders the key as "Type.Method".
func (k MethodKey) String() string {
	switch {
	case k.Type == "":
		return k.Method
	case k.Method == "":
		return k.Type
	default:
		return k.Type + "." + k.Method
	}
}

// IsZero reports whether the key names no method.
func (k MethodKey) IsZero() bool {
	return k.Method == ""
}

// Descriptor is the failure policy attached to one method.
//
// SuppressFailure and RecordFailure are independent. Fallback is the value
// returned when a failure is suppressed; nil means none was configured.
type Descriptor struct {
	SuppressFailure bool `yaml:"suppress_failure" json:"suppress_failure"`
	RecordFailure   bool `yaml:"record_failure" json:"record_failure"`
	Fallback        any  `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("suppress=%t record=%t fallback=%v", d.SuppressFailure, d.RecordFailure, d.Fallback)
}

// Lookup resolves the descriptor attached to a method.
// Implementations must be safe for concurrent use and free of side effects.
type Lookup interface {
	Lookup(key MethodKey) (Descriptor, bool)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(key MethodKey) (Descriptor, bool)

// Lookup implements the Lookup interface.
func (f LookupFunc) Lookup(key MethodKey) (Descriptor, bool) {
	return f(key)
}

// NoPolicy is a Lookup that never returns a descriptor.
var NoPolicy Lookup = LookupFunc(func(MethodKey) (Descriptor, bool) {
	return Descriptor{}, false
})
