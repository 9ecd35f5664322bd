package database

import (
	"errors"
	"strings"
)

// ErrCollectionMissing reports an operation against a collection whose
// tables have not been created.
var ErrCollectionMissing = errors.New("collection missing")

// mapTableError converts the driver's "no such table" failure into
// ErrCollectionMissing so callers never see raw driver errors for a
// collection that was simply never created.
func mapTableError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return ErrCollectionMissing
	}
	return err
}
