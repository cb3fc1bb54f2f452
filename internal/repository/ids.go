package repository

import (
	"fmt"

	"partner-portal/pkg/id"
)

// validID guards the create boundary. Storage locations embed raw ids, so
// a caller-supplied id must keep the PREFIX_BODY shape pkg/id generates;
// anything else (a colon, a bare dimension word) could collide a primary
// record with an index location.
func validID(entityType, s string) error {
	if !id.Valid(s) {
		return fmt.Errorf("invalid %s id %q", entityType, s)
	}
	return nil
}
