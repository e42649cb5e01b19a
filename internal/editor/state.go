package editor

import (
	"fmt"

	"fieldbook/api/internal/questionnaire"
)

// PersistenceError wraps an adapter failure during load or save. The editor's
// in-memory state is untouched when one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// State is the serialisable form of an editor session, used to carry a
// session across stateless requests.
type State struct {
	Document questionnaire.Document    `json:"document"`
	Expanded string                    `json:"expanded,omitempty"`
	Drag     *questionnaire.DragSession `json:"drag,omitempty"`
	Dirty    bool                       `json:"dirty"`
}

func (e *Editor) State() State {
	return State{
		Document: e.Document(),
		Expanded: e.expanded.Key(),
		Drag:     e.drag.Session(),
		Dirty:    e.dirty,
	}
}

func FromState(state State, opts ...Option) *Editor {
	e := New(state.Document, opts...)
	e.expanded = questionnaire.NewExpansion(state.Expanded)
	e.drag = questionnaire.NewDragCoordinator(state.Drag)
	e.dirty = state.Dirty
	return e
}

// View is what the editor renders: rows in pre-order with their depth, the
// live question count and the per-session UI state.
type View struct {
	DocumentID string                     `json:"documentId"`
	Name       string                     `json:"name"`
	Layout     questionnaire.Layout       `json:"layout"`
	Rows       []questionnaire.Row        `json:"rows"`
	Total      int                        `json:"total"`
	Expanded   string                     `json:"expanded"`
	Drag       *questionnaire.DragSession `json:"drag"`
	Dirty      bool                       `json:"dirty"`
}

func (e *Editor) View() View {
	return View{
		DocumentID: e.doc.ID,
		Name:       e.doc.Name,
		Layout:     e.doc.Layout,
		Rows:       questionnaire.Flatten(e.root),
		Total:      questionnaire.CountTotal(e.root),
		Expanded:   e.expanded.Key(),
		Drag:       e.drag.Session(),
		Dirty:      e.dirty,
	}
}
