package sourcemap

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"sarifnav/internal/sarif"
)

// The typed tree is decoded with encoding/json, which binds object keys to
// struct fields case-insensitively, while the index records keys as written.
// The walk follows the tree types so the two can be kept in agreement.

var (
	logType = reflect.TypeOf(sarif.Log{})
	shapes  sync.Map // reflect.Type -> map[string]reflect.Type
)

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// fieldsOf maps the JSON names of the exported fields of struct t to their types.
func fieldsOf(t reflect.Type) map[string]reflect.Type {
	if cached, ok := shapes.Load(t); ok {
		return cached.(map[string]reflect.Type)
	}
	fields := make(map[string]reflect.Type, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		fields[name] = f.Type
	}
	shapes.Store(t, fields)
	return fields
}

// memberType returns the modelled type of key inside an object of type t,
// nil when the key is not modelled. A key that matches a field name only up
// to case is rejected: the decoder would bind it to the field while the
// index keeps it under its own spelling.
func memberType(t reflect.Type, key string) (reflect.Type, error) {
	t = deref(t)
	if t == nil {
		return nil, nil
	}
	switch t.Kind() {
	case reflect.Map:
		return t.Elem(), nil
	case reflect.Struct:
		fields := fieldsOf(t)
		if ft, ok := fields[key]; ok {
			return ft, nil
		}
		for name := range fields {
			if strings.EqualFold(name, key) {
				return nil, fmt.Errorf("key %q differs from %q only by case", key, name)
			}
		}
	}
	return nil, nil
}

// elementType returns the modelled element type of an array of type t.
func elementType(t reflect.Type) reflect.Type {
	t = deref(t)
	if t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		return t.Elem()
	}
	return nil
}
