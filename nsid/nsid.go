// Package nsid implements 16-byte interface identifiers.
//
// The canonical textual form is the braced, lower-case form
// {xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx}. Parsing also accepts the unbraced
// and urn:uuid forms. In the native heap an identifier occupies Size bytes
// stored in textual order.
package nsid

import (
	"github.com/google/uuid"
)

// Size is the number of bytes an identifier occupies in native memory.
const Size = 16

// ID is an interface identifier.
type ID [Size]byte

// Null is the all-zero identifier used when the managed value is absent.
var Null ID

// Parse parses the textual form of an identifier.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Null, err
	}
	return ID(u), nil
}

// MustParse is like Parse but panics on malformed input.
// Intended for package-level identifier constants.
func MustParse(s string) ID {
	return ID(uuid.MustParse(s))
}

// FromBytes copies an identifier out of a native buffer.
func FromBytes(b []byte) (ID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return Null, err
	}
	return ID(u), nil
}

// String returns the braced canonical form.
func (id ID) String() string {
	return "{" + uuid.UUID(id).String() + "}"
}

// IsNull reports whether id is the all-zero identifier.
func (id ID) IsNull() bool {
	return id == Null
}

// Bytes returns the native representation of id.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}
