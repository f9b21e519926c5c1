// Package expansion substitutes ${prefix:key} references in configuration values using
// the secrets provider registry.
package expansion

import (
	"os"
	"reflect"
	"strings"

	"github.com/animalet/sargantana-contacts/pkg/config/secrets"
	"github.com/pkg/errors"
)

// ExpandVariables walks target (a pointer) and expands every settable string it reaches
// through structs, pointers, slices, maps and interface values. Strings are trimmed before
// expansion. The first resolution error aborts the walk.
func ExpandVariables(target any) error {
	if target == nil {
		return nil
	}
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return expandValue(v)
}

// ExpandString expands a single value.
func ExpandString(s string) (string, error) {
	var firstErr error
	out := os.Expand(strings.TrimSpace(s), func(property string) string {
		if firstErr != nil {
			return ""
		}
		value, err := secrets.Resolve(property)
		if err != nil {
			firstErr = errors.Wrap(err, "error resolving property")
			return ""
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func expandValue(val reflect.Value) error {
	switch val.Kind() {
	case reflect.String:
		if !val.CanSet() {
			return nil
		}
		expanded, err := ExpandString(val.String())
		if err != nil {
			return err
		}
		val.SetString(expanded)

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if !val.Type().Field(i).IsExported() {
				continue
			}
			if err := expandValue(val.Field(i)); err != nil {
				return err
			}
		}

	case reflect.Ptr:
		if !val.IsNil() {
			return expandValue(val.Elem())
		}

	case reflect.Interface:
		if val.IsNil() || !val.CanSet() {
			return nil
		}
		inner := val.Elem()
		cp := reflect.New(inner.Type()).Elem()
		cp.Set(inner)
		if err := expandValue(cp); err != nil {
			return err
		}
		val.Set(cp)

	case reflect.Slice:
		for i := 0; i < val.Len(); i++ {
			if err := expandValue(val.Index(i)); err != nil {
				return err
			}
		}

	case reflect.Map:
		iter := val.MapRange()
		for iter.Next() {
			// map entries are not addressable
			entry := reflect.New(iter.Value().Type()).Elem()
			entry.Set(iter.Value())
			if err := expandValue(entry); err != nil {
				return err
			}
			val.SetMapIndex(iter.Key(), entry)
		}
	}
	return nil
}
