package cfb

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// SkipDir can be returned by a WalkFunc to skip the directory it was
// called for.
var SkipDir = errors.New("skip this directory")

// WalkFunc is called for every entry below the root. name is the
// slash-separated path from the root.
type WalkFunc func(name string, p *Property) error

// FileSystem is an in-memory compound file: a property table plus the bytes
// of every document. It is not safe for concurrent use.
type FileSystem struct {
	table     *PropertyTable
	data      map[*Property][]byte
	blockSize BlockSize
	limits    Limits
	logger    *zap.Logger
}

// New returns an empty file system holding only the root entry.
func New(opts ...WriteOption) *FileSystem {
	cfg := newWriteConfig(BlockSize512, opts)
	bs := cfg.blockSize
	if !bs.valid() {
		bs = BlockSize512
	}
	t := NewPropertyTable(bs)
	t.logger = cfg.logger
	return &FileSystem{
		table:     t,
		data:      make(map[*Property][]byte),
		blockSize: bs,
		limits:    cfg.limits,
		logger:    cfg.logger,
	}
}

// Table exposes the underlying property table.
func (fsys *FileSystem) Table() *PropertyTable { return fsys.table }

// BlockSize reports the block size the file system was read with or will
// be written with by default.
func (fsys *FileSystem) BlockSize() BlockSize { return fsys.blockSize }

// Root returns the root entry.
func (fsys *FileSystem) Root() *Property {
	root, _ := fsys.table.Root()
	return root
}

// Lookup resolves a slash-separated path from the root. The empty path is
// the root itself.
func (fsys *FileSystem) Lookup(name string) (*Property, error) {
	cur := fsys.Root()
	if name == "" {
		return cur, nil
	}
	for _, part := range strings.Split(name, "/") {
		if !cur.IsDirectory() {
			return nil, fmt.Errorf("%w: %q", ErrNotDirectory, cur.Name)
		}
		next, ok := fsys.table.ChildByName(cur, part)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		cur = next
	}
	return cur, nil
}

// Children returns dir's children in sibling order.
func (fsys *FileSystem) Children(dir *Property) ([]*Property, error) {
	if !fsys.table.owns(dir) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, nameOf(dir))
	}
	if !dir.IsDirectory() {
		return nil, fmt.Errorf("%w: %q", ErrNotDirectory, dir.Name)
	}
	kids := fsys.table.Children(dir)
	slices.SortFunc(kids, func(a, b *Property) int { return compareNames(a.Name, b.Name) })
	return kids, nil
}

// ReadDocument returns a copy of a document's bytes.
func (fsys *FileSystem) ReadDocument(p *Property) ([]byte, error) {
	if !fsys.table.owns(p) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, nameOf(p))
	}
	if p.Type != TypeDocument {
		return nil, fmt.Errorf("%w: %q", ErrNotDocument, p.Name)
	}
	return slices.Clone(fsys.data[p]), nil
}

// CreateDirectory adds an empty storage under parent.
func (fsys *FileSystem) CreateDirectory(parent *Property, name string) (*Property, error) {
	p := NewProperty(name, TypeDirectory)
	if err := fsys.table.AddChild(parent, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateDocument adds a stream holding a copy of data under parent.
func (fsys *FileSystem) CreateDocument(parent *Property, name string, data []byte) (*Property, error) {
	if err := fsys.checkStreamSize(name, len(data)); err != nil {
		return nil, err
	}
	p := NewProperty(name, TypeDocument)
	p.Color = Red
	if err := fsys.table.AddChild(parent, p); err != nil {
		return nil, err
	}
	fsys.data[p] = slices.Clone(data)
	p.setSize(uint64(len(data)))
	return p, nil
}

// ReplaceDocument swaps a document's bytes for a copy of data.
func (fsys *FileSystem) ReplaceDocument(p *Property, data []byte) error {
	if !fsys.table.owns(p) {
		return fmt.Errorf("%w: %q", ErrNotFound, nameOf(p))
	}
	if p.Type != TypeDocument {
		return fmt.Errorf("%w: %q", ErrNotDocument, p.Name)
	}
	if err := fsys.checkStreamSize(p.Name, len(data)); err != nil {
		return err
	}
	fsys.data[p] = slices.Clone(data)
	p.setSize(uint64(len(data)))
	fsys.table.touch()
	return nil
}

func (fsys *FileSystem) checkStreamSize(name string, n int) error {
	if uint64(n) > fsys.limits.MaxStreamSize {
		return fmt.Errorf("%w: stream %q is %d bytes", ErrLimitExceeded, name, n)
	}
	return nil
}

// Remove deletes p and, for a directory, everything below it.
func (fsys *FileSystem) Remove(p *Property) error {
	if !fsys.table.owns(p) {
		return fmt.Errorf("%w: %q", ErrNotFound, nameOf(p))
	}
	if p.Type == TypeRoot {
		return fmt.Errorf("%w: the root cannot be removed", ErrValidation)
	}
	fsys.table.RemoveProperty(p)
	for q := range fsys.data {
		if !fsys.table.owns(q) {
			delete(fsys.data, q)
		}
	}
	return nil
}

// Rename changes p's name, refusing names already used by a sibling.
func (fsys *FileSystem) Rename(p *Property, name string) error {
	return fsys.table.Rename(p, name)
}

// Walk calls fn for every entry below the root, depth first, siblings in
// sibling order. Returning SkipDir from a directory skips its contents; any
// other error stops the walk.
func (fsys *FileSystem) Walk(fn WalkFunc) error {
	type item struct {
		name string
		p    *Property
	}
	root := fsys.Root()
	kids, err := fsys.Children(root)
	if err != nil {
		return err
	}
	var stack []item
	for i := len(kids) - 1; i >= 0; i-- {
		stack = append(stack, item{kids[i].Name, kids[i]})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		err := fn(it.name, it.p)
		if errors.Is(err, SkipDir) && it.p.IsDirectory() {
			continue
		}
		if err != nil {
			return err
		}
		if !it.p.IsDirectory() {
			continue
		}
		kids, err := fsys.Children(it.p)
		if err != nil {
			return err
		}
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, item{it.name + "/" + kids[i].Name, kids[i]})
		}
	}
	return nil
}

// PathOf returns the slash-separated path of p from the root.
func (fsys *FileSystem) PathOf(p *Property) (string, error) {
	if !fsys.table.owns(p) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, nameOf(p))
	}
	var parts []string
	for q := p; q != nil && q.Type != TypeRoot; q = fsys.table.parentOf(q) {
		parts = append(parts, q.Name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/"), nil
}
