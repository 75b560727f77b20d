package announcement

import "errors"

// Parse errors (spec.md §7, "Parse errors" taxonomy leaf): a malformed
// announcement never fails the containing transaction, only this parse.
var (
	// ErrNotAnnouncement means the output is not an OP_RETURN, or its push
	// payload does not begin with Magic. Most outputs hit this path.
	ErrNotAnnouncement = errors.New("announcement: not an announcement output")

	// ErrMalformed covers a recognized magic+kind with a payload that
	// fails to parse (wrong length, invalid chroma bytes, etc).
	ErrMalformed = errors.New("announcement: malformed payload")

	// ErrUnknownKind is returned for a kind discriminant this version
	// does not recognize.
	ErrUnknownKind = errors.New("announcement: unknown kind")
)
