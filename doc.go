// Package cfb reads and writes compound files, the OLE2 container format
// that holds a small file system of named streams inside one file.
//
// # File Format Overview
//
// A compound file is an array of fixed-size blocks (512 or 4096 bytes)
// after a header of the same size:
//   - The header names the format version and the locations of the
//     allocation tables and the directory
//   - The FAT chains blocks into streams; the DIFAT lists the FAT blocks
//   - The directory is a stream of 128-byte property slots. Each storage
//     keeps its children in a binary search tree threaded through the
//     slots' previous, next and child indices
//   - Streams shorter than 4096 bytes live in 64-byte mini blocks inside
//     the root entry's stream, chained through the mini FAT
//
// # Basic Usage
//
// To create and write a compound file:
//
//	fsys := cfb.New()
//	dir, _ := fsys.CreateDirectory(fsys.Root(), "Objects")
//	_, _ = fsys.CreateDocument(dir, "Contents", []byte("hello"))
//	f, _ := os.Create("out.cfb")
//	defer f.Close()
//	err := cfb.Encode(f, fsys)
//
// To read one:
//
//	f, _ := os.Open("in.doc")
//	defer f.Close()
//	st, _ := f.Stat()
//	fsys, err := cfb.Open(f, st.Size())
//	p, err := fsys.Lookup("WordDocument")
//	data, err := fsys.ReadDocument(p)
//
// The lower layers are exported for tools that work on the directory
// itself: [BlockStore] resolves chains, [PropertyTable] owns the flat
// property list and rebuilds sibling trees in [PropertyTable.PreWrite].
//
// # Stream Bundles
//
// [Export] and [Import] convert a file system to and from a compressed
// archive of its streams with a CBOR manifest of names, class ids and
// BLAKE3 digests.
//
// # Security Considerations
//
// Containers are untrusted input. Chain walks detect loops, every block
// index is range checked, tree building uses explicit stacks, and all sizes
// are bounded by configurable [Limits].
package cfb
