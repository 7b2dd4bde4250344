package cfb

import (
	"fmt"

	"go.uber.org/zap"
)

type dirFrame struct {
	slot  int
	depth int
}

// buildTree links every property reachable from the root into its parent's
// child list by walking each directory's sibling tree. Both walks use
// explicit stacks. Any broken link fails the whole read; slots that nothing
// references are cleared.
func buildTree(t *PropertyTable, limits Limits, log *zap.Logger) error {
	props := t.props
	if len(props) == 0 || props[0] == nil || props[0].Type != TypeRoot {
		return fmt.Errorf("%w: slot 0 is not the root", ErrCorruptTree)
	}
	visited := make([]bool, len(props))
	visited[0] = true
	dirs := []dirFrame{{slot: 0}}
	for len(dirs) > 0 {
		d := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]
		dir := props[d.slot]

		names := make(map[string]struct{})
		var stack []uint32
		if dir.Child != NoStream {
			stack = append(stack, dir.Child)
		}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if int64(i) >= int64(len(props)) {
				return fmt.Errorf("%w: %q links to slot %d of %d", ErrCorruptTree, dir.Name, i, len(props))
			}
			p := props[i]
			if p == nil {
				return fmt.Errorf("%w: %q links to empty slot %d", ErrCorruptTree, dir.Name, i)
			}
			if p.Type == TypeRoot {
				return fmt.Errorf("%w: root referenced from slot %d", ErrCorruptTree, d.slot)
			}
			if visited[i] {
				return fmt.Errorf("%w: slot %d reached twice", ErrCorruptTree, i)
			}
			visited[i] = true
			if _, dup := names[p.Name]; dup {
				return fmt.Errorf("%w: %w: %q in %q", ErrCorruptTree, ErrDuplicateName, p.Name, dir.Name)
			}
			names[p.Name] = struct{}{}

			p.parent = d.slot
			dir.children = append(dir.children, int(i))
			if p.IsDirectory() {
				if d.depth+1 > limits.MaxTreeDepth {
					return fmt.Errorf("%w: directories nested deeper than %d", ErrLimitExceeded, limits.MaxTreeDepth)
				}
				dirs = append(dirs, dirFrame{slot: int(i), depth: d.depth + 1})
			}
			if p.Previous != NoStream {
				stack = append(stack, p.Previous)
			}
			if p.Next != NoStream {
				stack = append(stack, p.Next)
			}
		}
	}

	orphans := 0
	for i, p := range props {
		if p != nil && !visited[i] {
			props[i] = nil
			orphans++
		}
	}
	if orphans > 0 {
		log.Debug("dropped unreachable property slots", zap.Int("count", orphans))
	}
	return nil
}
