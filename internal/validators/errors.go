package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyRemoteID      = errors.New("remote id is required")
	ErrRemoteIDTooLong    = errors.New("remote id is too long")
	ErrInvalidFields      = errors.New("fields must be a json object")
	ErrMissingParent      = errors.New("parent remote id is required")
	ErrUnexpectedParent   = errors.New("record type has no parent")
	ErrVersionTagTooLong  = errors.New("version tag is too long")
	ErrModifiedAtInFuture = errors.New("modification time is too far in the future")
)
