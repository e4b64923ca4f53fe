// README: Opaque identifiers shared across modules.
package types

import "github.com/google/uuid"

// ID is an opaque identifier. Trips, profiles and matches use UUID strings;
// rider identity is the verified email address.
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}
