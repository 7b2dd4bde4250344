// Package main provides C-compatible exports for the cfb library.
// Build with: go build -buildmode=c-shared -o cfb.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data
typedef struct {
    char* data;
    int   data_len;
    char* error;
} CfbResult;

// Stream for creating compound files
typedef struct {
    char* path;
    char* data;
    int   data_len;
} CStream;
*/
import "C"

import (
	"bytes"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"unsafe"

	"github.com/logicossoftware/go-cfb"
)

func main() {}

// CfbBundleVersion returns the stream bundle format version supported by
// this library.
//
//export CfbBundleVersion
func CfbBundleVersion() C.uint16_t {
	return C.uint16_t(cfb.BundleVersion)
}

// CfbFreeResult frees memory allocated by other Cfb functions.
// Must be called to avoid memory leaks.
//
//export CfbFreeResult
func CfbFreeResult(result C.CfbResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// CfbFreeString frees a C string allocated by Go.
//
//export CfbFreeString
func CfbFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// makeResult creates a result with data.
func makeResult(data []byte) C.CfbResult {
	var result C.CfbResult
	if len(data) > 0 {
		result.data = (*C.char)(C.CBytes(data))
		result.data_len = C.int(len(data))
	}
	return result
}

// makeError creates a result with an error message.
func makeError(err error) C.CfbResult {
	var result C.CfbResult
	result.error = C.CString(err.Error())
	return result
}

func open(data *C.char, dataLen C.int) (*cfb.FileSystem, error) {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	return cfb.Open(bytes.NewReader(goData), int64(len(goData)))
}

// ensureDir returns the directory at dir, creating missing levels.
func ensureDir(fsys *cfb.FileSystem, dir string) (*cfb.Property, error) {
	cur := fsys.Root()
	if dir == "." || dir == "" {
		return cur, nil
	}
	for _, name := range strings.Split(dir, "/") {
		next, err := fsys.Lookup(joinPath(fsys, cur, name))
		if errors.Is(err, cfb.ErrNotFound) {
			next, err = fsys.CreateDirectory(cur, name)
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func joinPath(fsys *cfb.FileSystem, dir *cfb.Property, name string) string {
	p, _ := fsys.PathOf(dir)
	if p == "" {
		return name
	}
	return p + "/" + name
}

// CfbEncode builds a compound file from a list of streams.
// Parameters:
//   - streams: array of CStream structs; paths use "/" between storages
//   - streamCount: number of streams
//   - blockSize: 512 (version 3) or 4096 (version 4)
//
// Returns CfbResult with the encoded file or error. Call CfbFreeResult when done.
//
//export CfbEncode
func CfbEncode(streams *C.CStream, streamCount C.int, blockSize C.int) C.CfbResult {
	fsys := cfb.New(cfb.WithBlockSize(cfb.BlockSize(blockSize)))
	if streamCount > 0 && streams != nil {
		for _, s := range unsafe.Slice(streams, int(streamCount)) {
			p := C.GoString(s.path)
			parent, err := ensureDir(fsys, path.Dir(p))
			if err != nil {
				return makeError(err)
			}
			data := C.GoBytes(unsafe.Pointer(s.data), s.data_len)
			if _, err := fsys.CreateDocument(parent, path.Base(p), data); err != nil {
				return makeError(err)
			}
		}
	}

	var buf bytes.Buffer
	if err := cfb.Encode(&buf, fsys); err != nil {
		return makeError(err)
	}
	return makeResult(buf.Bytes())
}

// CfbList opens a compound file and returns a JSON array describing every
// entry: path, type, size, clsid, created and modified.
// Returns CfbResult with the JSON or error. Call CfbFreeResult when done.
//
//export CfbList
func CfbList(data *C.char, dataLen C.int) C.CfbResult {
	fsys, err := open(data, dataLen)
	if err != nil {
		return makeError(err)
	}

	var entries []map[string]any
	err = fsys.Walk(func(name string, p *cfb.Property) error {
		e := map[string]any{
			"path": name,
			"type": p.Type.String(),
			"size": p.Size,
		}
		if !p.ClassID.IsZero() {
			e["clsid"] = p.ClassID.String()
		}
		if p.Created != 0 {
			e["created"] = p.CreatedTime()
		}
		if p.Modified != 0 {
			e["modified"] = p.ModifiedTime()
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return makeError(err)
	}

	jsonBytes, err := json.Marshal(entries)
	if err != nil {
		return makeError(err)
	}
	return makeResult(jsonBytes)
}

// CfbReadStream returns the bytes of the document at streamPath.
//
//export CfbReadStream
func CfbReadStream(data *C.char, dataLen C.int, streamPath *C.char) C.CfbResult {
	fsys, err := open(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	p, err := fsys.Lookup(C.GoString(streamPath))
	if err != nil {
		return makeError(err)
	}
	b, err := fsys.ReadDocument(p)
	if err != nil {
		return makeError(err)
	}
	return makeResult(b)
}

// CfbValidate opens a compound file and reads every stream.
// Returns NULL on success, or an error message string on failure.
// Call CfbFreeString on the result if non-NULL.
//
//export CfbValidate
func CfbValidate(data *C.char, dataLen C.int) *C.char {
	if _, err := open(data, dataLen); err != nil {
		return C.CString(err.Error())
	}
	return nil
}

// CfbGetStreamCount returns the number of documents in a compound file.
// Returns -1 on error.
//
//export CfbGetStreamCount
func CfbGetStreamCount(data *C.char, dataLen C.int) C.int {
	fsys, err := open(data, dataLen)
	if err != nil {
		return -1
	}
	n := 0
	_ = fsys.Walk(func(_ string, p *cfb.Property) error {
		if p.Type == cfb.TypeDocument {
			n++
		}
		return nil
	})
	return C.int(n)
}

// CfbExportBundle converts a compound file into a stream bundle.
// compression: 0=None, 1=ZIP, 2=ZSTD, 3=LZ4, 4=Brotli
//
//export CfbExportBundle
func CfbExportBundle(data *C.char, dataLen C.int, compression C.uint16_t) C.CfbResult {
	fsys, err := open(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	var buf bytes.Buffer
	if err := cfb.Export(&buf, fsys, cfb.WithCompression(cfb.Compression(compression))); err != nil {
		return makeError(err)
	}
	return makeResult(buf.Bytes())
}

// CfbImportBundle converts a stream bundle back into a compound file.
//
//export CfbImportBundle
func CfbImportBundle(data *C.char, dataLen C.int) C.CfbResult {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	fsys, err := cfb.Import(bytes.NewReader(goData))
	if err != nil {
		return makeError(err)
	}
	var buf bytes.Buffer
	if err := cfb.Encode(&buf, fsys); err != nil {
		return makeError(err)
	}
	return makeResult(buf.Bytes())
}
