package questionnaire

import "github.com/google/uuid"

// IDFunc produces a document-wide unique question id.
type IDFunc func() string

// NewQuestionID is the default IDFunc.
func NewQuestionID() string {
	return uuid.NewString()
}

const copySuffix = " (copy)"

// Patch carries the fields an edit replaces. Nil fields keep the target's
// current value; children are never patched.
type Patch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	AnswerType  *AnswerType `json:"answerType,omitempty"`
	Required    *bool       `json:"required,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.AnswerType == nil && p.Required == nil
}

// Changes reports whether applying p would alter any field of q.
func (p Patch) Changes(q Question) bool {
	after := p.Apply(q)
	return after.Title != q.Title ||
		after.Description != q.Description ||
		after.AnswerType != q.AnswerType ||
		after.Required != q.Required
}

func (p Patch) Apply(q Question) Question {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.AnswerType != nil && p.AnswerType.Valid() {
		q.AnswerType = *p.AnswerType
	}
	if p.Required != nil {
		q.Required = *p.Required
	}
	return q
}

// Insert appends q to the children of the node at parentPath, or to the root
// list when parentPath is empty.
func Insert(root []Question, parentPath Path, q Question) []Question {
	out, _ := editList(root, parentPath, func(list []Question) ([]Question, bool) {
		next := make([]Question, len(list), len(list)+1)
		copy(next, list)
		return append(next, cloneQuestion(q)), true
	})
	return out
}

// Update replaces the node at path with the patched node.
func Update(root []Question, path Path, patch Patch) []Question {
	parentPath, index := path.Parent()
	if index < 0 {
		return root
	}
	out, _ := editList(root, parentPath, func(list []Question) ([]Question, bool) {
		if index >= len(list) {
			return nil, false
		}
		next := make([]Question, len(list))
		copy(next, list)
		next[index] = patch.Apply(next[index])
		return next, true
	})
	return out
}

// Remove splices the node at path, with its whole subtree, out of its parent.
func Remove(root []Question, path Path) []Question {
	parentPath, index := path.Parent()
	if index < 0 {
		return root
	}
	out, _ := editList(root, parentPath, func(list []Question) ([]Question, bool) {
		if index >= len(list) {
			return nil, false
		}
		next := make([]Question, 0, len(list)-1)
		next = append(next, list[:index]...)
		return append(next, list[index+1:]...), true
	})
	return out
}

// Duplicate deep-copies the subtree at path and inserts the copy directly
// after the original. Every node of the copy gets a fresh id so ids stay
// unique across the document; only the copy's top node gets the title suffix.
func Duplicate(root []Question, path Path, newID IDFunc) []Question {
	if newID == nil {
		newID = NewQuestionID
	}
	parentPath, index := path.Parent()
	if index < 0 {
		return root
	}
	out, _ := editList(root, parentPath, func(list []Question) ([]Question, bool) {
		if index >= len(list) {
			return nil, false
		}
		dup := cloneWithFreshIDs(list[index], newID)
		if dup.Title != "" {
			dup.Title += copySuffix
		}
		next := make([]Question, 0, len(list)+1)
		next = append(next, list[:index+1]...)
		next = append(next, dup)
		return append(next, list[index+1:]...), true
	})
	return out
}

// Reorder moves the child at from to position to within the list addressed by
// parentPath. Equal or out-of-range indices leave the tree unchanged.
func Reorder(root []Question, parentPath Path, from, to int) []Question {
	if from == to {
		return root
	}
	out, _ := editList(root, parentPath, func(list []Question) ([]Question, bool) {
		if from < 0 || to < 0 || from >= len(list) || to >= len(list) {
			return nil, false
		}
		moved := list[from]
		rest := make([]Question, 0, len(list))
		rest = append(rest, list[:from]...)
		rest = append(rest, list[from+1:]...)

		next := make([]Question, 0, len(list))
		next = append(next, rest[:to]...)
		next = append(next, moved)
		return append(next, rest[to:]...), true
	})
	return out
}

// editList rebuilds the spine from the root down to the list at parentPath and
// applies edit to that list. Siblings off the spine are shared, not copied.
// When the path is stale or edit declines, the original root is returned.
func editList(root []Question, parentPath Path, edit func([]Question) ([]Question, bool)) ([]Question, bool) {
	if len(parentPath) == 0 {
		next, ok := edit(root)
		if !ok {
			return root, false
		}
		return next, true
	}

	index := parentPath[0]
	if index < 0 || index >= len(root) {
		return root, false
	}
	children, ok := editList(root[index].Children, parentPath[1:], edit)
	if !ok {
		return root, false
	}

	next := make([]Question, len(root))
	copy(next, root)
	node := next[index]
	node.Children = children
	next[index] = node
	return next, true
}

func cloneWithFreshIDs(q Question, newID IDFunc) Question {
	out := q
	out.ID = newID()
	if q.Children == nil {
		return out
	}
	out.Children = make([]Question, len(q.Children))
	for i, child := range q.Children {
		out.Children[i] = cloneWithFreshIDs(child, newID)
	}
	return out
}
