// Package fieldpath resolves dotted and indexed field paths against event payloads.
package fieldpath

import (
	"reflect"
	"strconv"
	"strings"
)

// PartType kinds of path segments
type PartType int

const (
	PartField PartType = iota
	PartIndex
	PartKey
)

// FieldPart represents a single part of a field path
type FieldPart struct {
	Type  PartType
	Name  string // field name or map key
	Index int    // array index, negative counts from the end
}

// FieldAccessError reports a malformed path.
type FieldAccessError struct {
	Path    string
	Message string
}

func (e *FieldAccessError) Error() string {
	return "field path '" + e.Path + "': " + e.Message
}

// ParseFieldPath parses a.b[0].c["key"] style paths.
func ParseFieldPath(path string) ([]FieldPart, error) {
	var parts []FieldPart
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		bracket := strings.IndexByte(segment, '[')
		if bracket == -1 {
			parts = append(parts, FieldPart{Type: PartField, Name: segment})
			continue
		}
		if bracket > 0 {
			parts = append(parts, FieldPart{Type: PartField, Name: segment[:bracket]})
		}
		rest := segment[bracket:]
		for rest != "" {
			if rest[0] != '[' {
				return nil, &FieldAccessError{Path: path, Message: "unexpected text after bracket"}
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, &FieldAccessError{Path: path, Message: "unmatched bracket"}
			}
			part, err := parseBracket(path, strings.TrimSpace(rest[1:end]))
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
			rest = rest[end+1:]
		}
	}
	if len(parts) == 0 {
		return nil, &FieldAccessError{Path: path, Message: "empty path"}
	}
	return parts, nil
}

func parseBracket(path, content string) (FieldPart, error) {
	if len(content) >= 2 && (content[0] == '\'' || content[0] == '"') && content[len(content)-1] == content[0] {
		return FieldPart{Type: PartKey, Name: content[1 : len(content)-1]}, nil
	}
	if n, err := strconv.Atoi(content); err == nil {
		return FieldPart{Type: PartIndex, Index: n, Name: content}, nil
	}
	return FieldPart{}, &FieldAccessError{Path: path, Message: "bracket content must be a number or a quoted key"}
}

// GetNestedField gets a value from nested maps, slices and structs.
func GetNestedField(data interface{}, path string) (interface{}, bool) {
	parts, err := ParseFieldPath(path)
	if err != nil {
		return nil, false
	}
	current := data
	for _, part := range parts {
		next, ok := access(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func access(data interface{}, part FieldPart) (interface{}, bool) {
	if m, ok := data.(map[string]interface{}); ok && part.Type != PartIndex {
		v, found := m[part.Name]
		return v, found
	}
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := v.MapIndex(reflect.ValueOf(part.Name).Convert(v.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		if part.Type != PartIndex {
			return nil, false
		}
		idx := part.Index
		if idx < 0 {
			idx += v.Len()
		}
		if idx < 0 || idx >= v.Len() {
			return nil, false
		}
		return v.Index(idx).Interface(), true
	case reflect.Struct:
		if part.Type != PartField {
			return nil, false
		}
		f := v.FieldByName(part.Name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

// IsNestedField reports whether the path goes below the top level.
func IsNestedField(path string) bool {
	return strings.ContainsAny(path, ".[")
}

// ExtractTopLevelField returns the first segment of a path.
func ExtractTopLevelField(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}
