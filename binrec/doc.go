// Package binrec provides the little-endian primitives used to decode and
// encode fixed-layout binary records: a bounds-checked read [Cursor], an
// append-only [Writer], and helpers for the fixed-width UTF-16LE and 8-bit
// string fields common to compound-file and metafile structures.
//
// Every read either returns exactly the number of bytes its width declares or
// fails with [ErrTruncated]; short input is never zero-filled.
package binrec
