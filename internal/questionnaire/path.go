package questionnaire

import (
	"fmt"
	"strconv"
	"strings"
)

// Path locates a node by sibling index at every level, starting at the
// document root. The empty path denotes the root list itself and never
// resolves to a node.
type Path []int

const pathSeparator = "."

// Key encodes the path as a deterministic string so two parent paths can be
// compared without deep equality.
func (p Path) Key() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, index := range p {
		parts[i] = strconv.Itoa(index)
	}
	return strings.Join(parts, pathSeparator)
}

func (p Path) String() string {
	return "[" + p.Key() + "]"
}

func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Parent returns the path of the containing list and the node's index in it.
// The root path has no parent and reports index -1.
func (p Path) Parent() (Path, int) {
	if len(p) == 0 {
		return Path{}, -1
	}
	return p[:len(p)-1].Clone(), p[len(p)-1]
}

// Child returns a new path one level deeper.
func (p Path) Child(index int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, index)
}

func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

func (p Path) Equal(other Path) bool {
	return p.Key() == other.Key()
}

// ParsePath is the inverse of Key.
func ParsePath(key string) (Path, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Path{}, nil
	}
	parts := strings.Split(key, pathSeparator)
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		index, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse path %q: segment %q is not an index", key, part)
		}
		if index < 0 {
			return nil, fmt.Errorf("parse path %q: negative segment %d", key, index)
		}
		out = append(out, index)
	}
	return out, nil
}
