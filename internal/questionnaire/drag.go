package questionnaire

// DragSession exists only between drag-start and the terminal event.
type DragSession struct {
	ParentPathKey string `json:"parentPathKey"`
	FromIndex     int    `json:"fromIndex"`
}

// DragCoordinator gates reorders coming from drag gestures: a drop commits only
// when it lands among the siblings the drag started from. Moving a question to
// another nesting level is not supported.
type DragCoordinator struct {
	session *DragSession
}

// NewDragCoordinator restores a coordinator, e.g. from a persisted editor
// state. A nil session yields an idle coordinator.
func NewDragCoordinator(session *DragSession) *DragCoordinator {
	c := &DragCoordinator{}
	if session != nil {
		copied := *session
		c.session = &copied
	}
	return c
}

func (c *DragCoordinator) Dragging() bool {
	return c.session != nil
}

func (c *DragCoordinator) Session() *DragSession {
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// Start moves Idle -> Dragging. Starting again replaces the previous session.
func (c *DragCoordinator) Start(parentPath Path, fromIndex int) {
	c.session = &DragSession{
		ParentPathKey: parentPath.Key(),
		FromIndex:     fromIndex,
	}
}

// Drop commits a reorder when the candidate parent matches the drag's parent
// and the index changed. The coordinator is idle afterwards either way; a drop
// that arrives while idle returns root untouched.
func (c *DragCoordinator) Drop(root []Question, parentPath Path, toIndex int) ([]Question, bool) {
	session := c.session
	c.session = nil
	if session == nil {
		return root, false
	}
	if parentPath.Key() != session.ParentPathKey || session.FromIndex == toIndex {
		return root, false
	}
	list, ok := childrenAt(root, parentPath)
	if !ok || session.FromIndex < 0 || session.FromIndex >= len(list) || toIndex < 0 || toIndex >= len(list) {
		return root, false
	}
	return Reorder(root, parentPath, session.FromIndex, toIndex), true
}

// End handles drag-end and escape.
func (c *DragCoordinator) End() {
	c.session = nil
}
