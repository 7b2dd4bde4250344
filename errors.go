package cfb

import "errors"

var (
	ErrInvalidMagic       = errors.New("cfb: invalid magic")
	ErrOOXML              = errors.New("cfb: data is an OOXML zip package, not a compound file")
	ErrUnsupportedVersion = errors.New("cfb: unsupported version")
	ErrInvalidHeader      = errors.New("cfb: invalid header")
	ErrInvalidBlock       = errors.New("cfb: invalid block index")
	ErrChainLoop          = errors.New("cfb: block chain loop")
	ErrCorruptTree        = errors.New("cfb: corrupt property tree")
	ErrDuplicateName      = errors.New("cfb: duplicate sibling name")
	ErrInvalidName        = errors.New("cfb: invalid property name")
	ErrNotFound           = errors.New("cfb: entry not found")
	ErrNotDirectory       = errors.New("cfb: not a directory")
	ErrNotDocument        = errors.New("cfb: not a document")
	ErrNotPrepared        = errors.New("cfb: property table not prepared for write")
	ErrLimitExceeded      = errors.New("cfb: limit exceeded")
	ErrInvalidPayload     = errors.New("cfb: invalid bundle payload")
	ErrValidation         = errors.New("cfb: validation failed")
)
