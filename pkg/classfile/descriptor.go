package classfile

import (
	"fmt"
	"strings"
)

// FieldType is a single parsed element of a descriptor: a parameter, a field
// type, or a return type.
type FieldType struct {
	Kind   byte   // one of BCDFIJSZV L [
	Class  string // internal class name, only set when Kind == 'L'
	Elem   *FieldType
}

// Category returns the operand-stack/local-variable category of this type:
// 2 for long/double, 1 for everything else (including void, which never
// actually occupies a slot).
func (t FieldType) Category() int {
	if t.Kind == 'J' || t.Kind == 'D' {
		return 2
	}
	return 1
}

// ParseDescriptor splits a method descriptor "(params)return" into its
// parameter types and return type.
func ParseDescriptor(descriptor string) (params []FieldType, ret FieldType, err error) {
	start := strings.IndexByte(descriptor, '(')
	end := strings.IndexByte(descriptor, ')')
	if start != 0 || end == -1 || end < start {
		return nil, FieldType{}, fmt.Errorf("invalid method descriptor: %q", descriptor)
	}
	paramStr := descriptor[start+1 : end]
	retStr := descriptor[end+1:]

	for len(paramStr) > 0 {
		ft, rest, err := parseFieldType(paramStr)
		if err != nil {
			return nil, FieldType{}, fmt.Errorf("parsing parameter in %q: %w", descriptor, err)
		}
		params = append(params, ft)
		paramStr = rest
	}

	if retStr == "V" {
		ret = FieldType{Kind: 'V'}
		return params, ret, nil
	}
	ret, rest, err := parseFieldType(retStr)
	if err != nil {
		return nil, FieldType{}, fmt.Errorf("parsing return type in %q: %w", descriptor, err)
	}
	if rest != "" {
		return nil, FieldType{}, fmt.Errorf("trailing data after return type in %q", descriptor)
	}
	return params, ret, nil
}

// ParseFieldDescriptor parses a bare field type descriptor, e.g. "I" or "[Ljava/lang/String;".
func ParseFieldDescriptor(descriptor string) (FieldType, error) {
	ft, rest, err := parseFieldType(descriptor)
	if err != nil {
		return FieldType{}, err
	}
	if rest != "" {
		return FieldType{}, fmt.Errorf("trailing data after field descriptor %q", descriptor)
	}
	return ft, nil
}

func parseFieldType(s string) (FieldType, string, error) {
	if len(s) == 0 {
		return FieldType{}, "", fmt.Errorf("empty type descriptor")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return FieldType{Kind: s[0]}, s[1:], nil
	case 'L':
		idx := strings.IndexByte(s, ';')
		if idx == -1 {
			return FieldType{}, "", fmt.Errorf("unterminated class type in %q", s)
		}
		return FieldType{Kind: 'L', Class: s[1:idx]}, s[idx+1:], nil
	case '[':
		elem, rest, err := parseFieldType(s[1:])
		if err != nil {
			return FieldType{}, "", err
		}
		return FieldType{Kind: '[', Elem: &elem}, rest, nil
	default:
		return FieldType{}, "", fmt.Errorf("invalid type descriptor char %q", s[0])
	}
}

// CountParameterSlots returns how many operand-stack/local-variable category
// units the parameters of a method descriptor occupy (category-2 types count
// double).
func CountParameterSlots(descriptor string) (int, error) {
	params, _, err := ParseDescriptor(descriptor)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range params {
		n += p.Category()
	}
	return n, nil
}

// CountParameters returns the number of parameters (not slots) in a method descriptor.
func CountParameters(descriptor string) (int, error) {
	params, _, err := ParseDescriptor(descriptor)
	if err != nil {
		return 0, err
	}
	return len(params), nil
}

// IsVoidReturn reports whether a method descriptor's return type is void.
func IsVoidReturn(descriptor string) bool {
	return strings.HasSuffix(descriptor, ")V")
}

// ReturnCategory returns the category of a method descriptor's return type
// (0 for void).
func ReturnCategory(descriptor string) int {
	_, ret, err := ParseDescriptor(descriptor)
	if err != nil || ret.Kind == 'V' {
		return 0
	}
	return ret.Category()
}
