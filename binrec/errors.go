package binrec

import "errors"

var (
	ErrTruncated    = errors.New("binrec: truncated input")
	ErrUnterminated = errors.New("binrec: string field not terminated")
	ErrInvalidValue = errors.New("binrec: value out of range")
	ErrFieldTooLong = errors.New("binrec: string does not fit field")
)
