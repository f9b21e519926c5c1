// Package deepcopy isolates configuration handed to long-lived components from later
// mutation by the caller.
package deepcopy

import (
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Copy returns a deep copy of *src. Slices, maps and nested pointers are duplicated.
// A nil src yields (nil, nil).
func Copy[T any](src *T) (*T, error) {
	if src == nil {
		return nil, nil
	}
	var dst T
	if err := deepcopy.Copy(&dst, *src); err != nil {
		return nil, errors.Wrapf(err, "failed to deep copy %T", src)
	}
	return &dst, nil
}

// MustCopy is Copy for values known to be copyable; it panics otherwise.
func MustCopy[T any](src *T) *T {
	dst, err := Copy(src)
	if err != nil {
		panic(err)
	}
	return dst
}
