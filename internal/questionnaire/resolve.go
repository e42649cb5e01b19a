package questionnaire

// Resolution is the result of walking a path. When the path does not resolve,
// Item is nil and Index is -1; callers treat that as a stale locator.
type Resolution struct {
	ParentList []Question
	Item       *Question
	ParentPath Path
	Index      int
}

func (r Resolution) Found() bool {
	return r.Item != nil
}

// Resolve walks path one level at a time through Children. It never panics on
// out-of-range or negative segments; it reports "not found" instead, so event
// handlers racing a previous mutation degrade to a no-op.
//
// Item is a shallow copy: its Children and ParentList share the tree's
// backing arrays and must be treated as read-only. Use Get for a detached
// copy.
func Resolve(root []Question, path Path) Resolution {
	notFound := Resolution{Index: -1}
	if len(path) == 0 {
		return notFound
	}

	list := root
	for depth, index := range path {
		if index < 0 || index >= len(list) {
			return notFound
		}
		if depth == len(path)-1 {
			item := list[index]
			return Resolution{
				ParentList: list,
				Item:       &item,
				ParentPath: path[:depth].Clone(),
				Index:      index,
			}
		}
		list = list[index].Children
	}
	return notFound
}

// Get returns a deep copy of the node at path.
func Get(root []Question, path Path) (Question, bool) {
	res := Resolve(root, path)
	if !res.Found() {
		return Question{}, false
	}
	return cloneQuestion(*res.Item), true
}

// childrenAt returns the list addressed by parentPath: the root list for the
// empty path, otherwise the resolved node's children.
func childrenAt(root []Question, parentPath Path) ([]Question, bool) {
	if len(parentPath) == 0 {
		return root, true
	}
	res := Resolve(root, parentPath)
	if !res.Found() {
		return nil, false
	}
	return res.Item.Children, true
}
