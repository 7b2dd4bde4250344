package cfb

import (
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
)

const rootEntryName = "Root Entry"

// PropertyTable owns every property of one container in a flat list.
// Positions are stable: removing a property leaves a nil hole. A table is
// not safe for concurrent use.
type PropertyTable struct {
	blockSize BlockSize
	props     []*Property
	logger    *zap.Logger

	gen      uint64 // bumped by every mutation
	prepared bool
	prepGen  uint64
	order    []*Property
	image    []byte
}

// NewPropertyTable returns a table holding only a root entry.
func NewPropertyTable(bs BlockSize) *PropertyTable {
	if !bs.valid() {
		bs = BlockSize512
	}
	t := &PropertyTable{blockSize: bs, logger: zap.NewNop()}
	t.AddProperty(NewProperty(rootEntryName, TypeRoot))
	return t
}

// ReadPropertyTable reads the directory chain at start and rebuilds the
// tree.
func ReadPropertyTable(store *BlockStore, start uint32, opts ...ReadOption) (*PropertyTable, error) {
	cfg := newReadConfig(opts)
	return readPropertyTable(store, start, cfg)
}

func readPropertyTable(store *BlockStore, start uint32, cfg readConfig) (*PropertyTable, error) {
	blocks, err := store.FetchBlocks(start)
	if err != nil {
		return nil, fmt.Errorf("directory chain: %w", err)
	}
	props, err := convertProperties(blocks, store.BlockSize(), cfg.limits, cfg.logger)
	if err != nil {
		return nil, err
	}
	t := &PropertyTable{blockSize: store.BlockSize(), props: props, logger: cfg.logger}
	for i, p := range props {
		if p != nil {
			p.table = t
			p.slot = i
		}
	}
	if err := buildTree(t, cfg.limits, cfg.logger); err != nil {
		return nil, err
	}
	return t, nil
}

// BlockSize reports the block size the table serializes to.
func (t *PropertyTable) BlockSize() BlockSize { return t.blockSize }

// Len reports the number of live properties, root included.
func (t *PropertyTable) Len() int {
	n := 0
	for _, p := range t.props {
		if p != nil {
			n++
		}
	}
	return n
}

func (t *PropertyTable) owns(p *Property) bool {
	return p != nil && p.table == t && p.slot >= 0 && p.slot < len(t.props) && t.props[p.slot] == p
}

func (t *PropertyTable) touch() {
	t.gen++
	t.prepared = false
}

// Root returns the root entry.
func (t *PropertyTable) Root() (*Property, error) {
	if len(t.props) == 0 || t.props[0] == nil || t.props[0].Type != TypeRoot {
		return nil, fmt.Errorf("%w: table has no root", ErrCorruptTree)
	}
	return t.props[0], nil
}

// AddProperty places p in the table, detached, and returns its position. A
// property already in the table keeps its position. A property owned by
// another table is refused with -1.
func (t *PropertyTable) AddProperty(p *Property) int {
	if p == nil {
		return -1
	}
	if t.owns(p) {
		return p.slot
	}
	if p.table != nil && p.table != t {
		return -1
	}
	p.table = t
	p.slot = len(t.props)
	p.parent = -1
	p.children = nil
	t.props = append(t.props, p)
	t.touch()
	return p.slot
}

// RemoveProperty drops p and everything below it. Properties not in the
// table, and the root, are ignored.
func (t *PropertyTable) RemoveProperty(p *Property) {
	if !t.owns(p) || p.slot == 0 {
		return
	}
	if p.parent >= 0 {
		if parent := t.props[p.parent]; parent != nil {
			parent.children = slices.DeleteFunc(parent.children, func(i int) bool { return i == p.slot })
		}
	}
	stack := []*Property{p}
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ci := range q.children {
			if c := t.props[ci]; c != nil {
				stack = append(stack, c)
			}
		}
		t.props[q.slot] = nil
		q.table = nil
		q.slot = -1
		q.parent = -1
		q.children = nil
	}
	t.touch()
}

// AddChild attaches child under parent, adding it to the table when it is
// detached. The table is unchanged on error.
func (t *PropertyTable) AddChild(parent, child *Property) error {
	if !t.owns(parent) {
		return fmt.Errorf("%w: parent is not in this table", ErrNotFound)
	}
	if !parent.IsDirectory() {
		return fmt.Errorf("%w: %q", ErrNotDirectory, parent.Name)
	}
	if child == nil || child.Type == TypeRoot || !child.Type.known() {
		return fmt.Errorf("%w: child must be a directory or document", ErrValidation)
	}
	if child.table != nil && child.table != t {
		return fmt.Errorf("%w: %q belongs to another table", ErrValidation, child.Name)
	}
	if t.owns(child) && child.parent >= 0 {
		return fmt.Errorf("%w: %q already has a parent", ErrValidation, child.Name)
	}
	if err := validateName(child.Name); err != nil {
		return err
	}
	for a := parent; a != nil; a = t.parentOf(a) {
		if a == child {
			return fmt.Errorf("%w: %q would contain itself", ErrValidation, child.Name)
		}
	}
	if _, ok := t.ChildByName(parent, child.Name); ok {
		return fmt.Errorf("%w: %q in %q", ErrDuplicateName, child.Name, parent.Name)
	}
	t.AddProperty(child)
	child.parent = parent.slot
	parent.children = append(parent.children, child.slot)
	t.touch()
	return nil
}

// DeleteChild detaches child from parent. The child stays in the table but
// is no longer written.
func (t *PropertyTable) DeleteChild(parent, child *Property) error {
	if !t.owns(parent) || !t.owns(child) || child.parent != parent.slot {
		return fmt.Errorf("%w: %q is not a child of %q", ErrNotFound, nameOf(child), nameOf(parent))
	}
	parent.children = slices.DeleteFunc(parent.children, func(i int) bool { return i == child.slot })
	child.parent = -1
	t.touch()
	return nil
}

func nameOf(p *Property) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func (t *PropertyTable) parentOf(p *Property) *Property {
	if p.parent < 0 || p.parent >= len(t.props) {
		return nil
	}
	return t.props[p.parent]
}

// Parent returns p's directory, or nil for the root and detached entries.
func (t *PropertyTable) Parent(p *Property) *Property {
	if !t.owns(p) {
		return nil
	}
	return t.parentOf(p)
}

// Children returns dir's children in the order they were attached.
func (t *PropertyTable) Children(dir *Property) []*Property {
	if !t.owns(dir) {
		return nil
	}
	out := make([]*Property, 0, len(dir.children))
	for _, ci := range dir.children {
		if c := t.props[ci]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ChildByName finds a direct child by exact name.
func (t *PropertyTable) ChildByName(dir *Property, name string) (*Property, bool) {
	if !t.owns(dir) {
		return nil, false
	}
	for _, ci := range dir.children {
		if c := t.props[ci]; c != nil && c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Rename changes p's name. A name already used by a sibling is refused and
// the old name kept.
func (t *PropertyTable) Rename(p *Property, name string) error {
	if !t.owns(p) {
		return fmt.Errorf("%w: %q is not in this table", ErrNotFound, nameOf(p))
	}
	if p.Type == TypeRoot {
		return fmt.Errorf("%w: the root cannot be renamed", ErrValidation)
	}
	if err := validateName(name); err != nil {
		return err
	}
	if name == p.Name {
		return nil
	}
	if parent := t.parentOf(p); parent != nil {
		if _, ok := t.ChildByName(parent, name); ok {
			return fmt.Errorf("%w: %q in %q", ErrDuplicateName, name, parent.Name)
		}
	}
	p.Name = name
	t.touch()
	return nil
}

// reachable lists the properties that will be written, root first, in
// depth-first order with each directory's children in sibling order.
func (t *PropertyTable) reachable() ([]*Property, map[int][]*Property, error) {
	root, err := t.Root()
	if err != nil {
		return nil, nil, err
	}
	order := make([]*Property, 0, len(t.props))
	sorted := make(map[int][]*Property)
	stack := []*Property{root}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, p)
		if !p.IsDirectory() {
			continue
		}
		kids, err := t.sortedChildren(p)
		if err != nil {
			return nil, nil, err
		}
		sorted[p.slot] = kids
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return order, sorted, nil
}

func (t *PropertyTable) sortedChildren(dir *Property) ([]*Property, error) {
	kids := t.Children(dir)
	slices.SortFunc(kids, func(a, b *Property) int { return compareNames(a.Name, b.Name) })
	for i := 1; i < len(kids); i++ {
		if compareNames(kids[i-1].Name, kids[i].Name) == 0 {
			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateName, kids[i].Name, dir.Name)
		}
	}
	return kids, nil
}

// linkSiblings rebuilds dir's sibling tree from its sorted children. The
// middle child becomes the subtree root; the children before it chain
// through Previous and the ones after it through Next.
func linkSiblings(dir *Property, kids []*Property) {
	for _, k := range kids {
		k.Previous, k.Next = NoStream, NoStream
	}
	if len(kids) == 0 {
		dir.Child = NoStream
		return
	}
	mid := len(kids) / 2
	dir.Child = kids[mid].Index
	for j := 1; j <= mid; j++ {
		kids[j].Previous = kids[j-1].Index
	}
	for j := mid; j < len(kids)-1; j++ {
		kids[j].Next = kids[j+1].Index
	}
}

// PreWrite assigns final indices, rebuilds every sibling tree and
// serializes the table. Any later mutation invalidates the result.
func (t *PropertyTable) PreWrite() error {
	order, sorted, err := t.reachable()
	if err != nil {
		return err
	}
	for i, p := range order {
		p.Index = uint32(i)
	}
	for _, p := range order {
		if p.IsDirectory() {
			linkSiblings(p, sorted[p.slot])
		} else {
			p.Child = NoStream
		}
	}
	order[0].Previous, order[0].Next = NoStream, NoStream

	per := t.blockSize.propertiesPerBlock()
	nblocks := (len(order) + per - 1) / per
	image := make([]byte, nblocks*int(t.blockSize))
	for i := 0; i < nblocks*per; i++ {
		off := i * PropertySize
		if i >= len(order) {
			encodeFreeSlot(image, off)
			continue
		}
		if err := order[i].encode(image, off, t.blockSize); err != nil {
			return fmt.Errorf("property %q: %w", order[i].Name, err)
		}
	}
	if slack := nblocks*per - len(order); slack > 0 {
		t.logger.Debug("property table tail slack", zap.Int("free_slots", slack))
	}
	t.order = order
	t.image = image
	t.prepared = true
	t.prepGen = t.gen
	return nil
}

func (t *PropertyTable) checkPrepared() error {
	if !t.prepared || t.prepGen != t.gen {
		return ErrNotPrepared
	}
	return nil
}

// CountBlocks reports how many blocks the serialized table occupies.
func (t *PropertyTable) CountBlocks() (int, error) {
	if err := t.checkPrepared(); err != nil {
		return 0, err
	}
	return len(t.image) / int(t.blockSize), nil
}

// WriteBlocks writes the serialized table.
func (t *PropertyTable) WriteBlocks(w io.Writer) error {
	if err := t.checkPrepared(); err != nil {
		return err
	}
	_, err := w.Write(t.image)
	return err
}

// Bytes returns a copy of the serialized table.
func (t *PropertyTable) Bytes() ([]byte, error) {
	if err := t.checkPrepared(); err != nil {
		return nil, err
	}
	return slices.Clone(t.image), nil
}
