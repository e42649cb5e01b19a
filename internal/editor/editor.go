// Package editor is the controller for one questionnaire editing session. It
// owns the in-memory tree, the single expanded panel and the drag session, and
// threads them through the pure operations in package questionnaire. Nothing
// reaches the store until Save.
package editor

import (
	"context"
	"time"

	"fieldbook/api/internal/questionnaire"
)

// Adapter is the whole-document persistence contract the editor consumes.
type Adapter interface {
	ListDocuments(ctx context.Context) ([]questionnaire.Summary, error)
	LoadDocument(ctx context.Context, id string) (questionnaire.Document, error)
	CreateDocument(ctx context.Context, doc questionnaire.Document) (string, error)
	UpdateDocument(ctx context.Context, id string, patch questionnaire.DocumentPatch) error
	DeleteDocument(ctx context.Context, id string) error
}

type Editor struct {
	doc      questionnaire.Document
	root     []questionnaire.Question
	expanded questionnaire.Expansion
	drag     *questionnaire.DragCoordinator
	dirty    bool

	newID questionnaire.IDFunc
	now   func() time.Time
}

type Option func(*Editor)

func WithIDFunc(fn questionnaire.IDFunc) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// New starts a session over doc. The document is deep-copied so later edits
// never reach the caller's value.
func New(doc questionnaire.Document, opts ...Option) *Editor {
	doc = doc.Clone()
	if doc.Layout.QuestionsPerRow == 0 {
		doc.Layout = questionnaire.DefaultLayout()
	}
	e := &Editor{
		doc:   doc,
		root:  doc.Questions,
		drag:  questionnaire.NewDragCoordinator(nil),
		newID: questionnaire.NewQuestionID,
		now:   time.Now,
	}
	e.doc.Questions = nil
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Blank starts a session for a document that has never been saved.
func Blank(createdBy string, opts ...Option) *Editor {
	return New(questionnaire.Document{
		Layout:    questionnaire.DefaultLayout(),
		CreatedBy: createdBy,
	}, opts...)
}

// Open loads a stored document into a new session.
func Open(ctx context.Context, adapter Adapter, id string, opts ...Option) (*Editor, error) {
	doc, err := adapter.LoadDocument(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return New(doc, opts...), nil
}

// Document returns the envelope with the current tree.
func (e *Editor) Document() questionnaire.Document {
	doc := e.doc
	doc.Questions = e.root
	return doc.Clone()
}

func (e *Editor) Root() []questionnaire.Question {
	return e.root
}

func (e *Editor) Dirty() bool {
	return e.dirty
}

func (e *Editor) Expanded() string {
	return e.expanded.Key()
}

func (e *Editor) DragSession() *questionnaire.DragSession {
	return e.drag.Session()
}

func (e *Editor) replace(next []questionnaire.Question) {
	e.root = next
	e.dirty = true
}

// AddQuestion appends a blank question under parentPath and opens its panel.
func (e *Editor) AddQuestion(parentPath questionnaire.Path) (string, bool) {
	if !parentPath.IsRoot() && !questionnaire.Resolve(e.root, parentPath).Found() {
		return "", false
	}
	id := e.newID()
	e.replace(questionnaire.Insert(e.root, parentPath, questionnaire.NewQuestion(id)))
	e.expanded.Expand(id)
	return id, true
}

// UpdateQuestion reports false, leaving the draft clean, when the path is stale
// or the patch would not change any field. An invalid answer type counts as
// no change.
func (e *Editor) UpdateQuestion(path questionnaire.Path, patch questionnaire.Patch) bool {
	if patch.Empty() {
		return false
	}
	res := questionnaire.Resolve(e.root, path)
	if !res.Found() || !patch.Changes(*res.Item) {
		return false
	}
	e.replace(questionnaire.Update(e.root, path, patch))
	return true
}

// RemoveQuestion deletes the question and all of its descendants. If the open
// panel belonged to the removed subtree it is closed.
func (e *Editor) RemoveQuestion(path questionnaire.Path) bool {
	res := questionnaire.Resolve(e.root, path)
	if !res.Found() {
		return false
	}
	if open := e.expanded.Key(); open != "" {
		for _, id := range questionnaire.CollectIDs([]questionnaire.Question{*res.Item}) {
			if id == open {
				e.expanded.Collapse()
				break
			}
		}
	}
	e.replace(questionnaire.Remove(e.root, path))
	return true
}

func (e *Editor) DuplicateQuestion(path questionnaire.Path) bool {
	if !questionnaire.Resolve(e.root, path).Found() {
		return false
	}
	e.replace(questionnaire.Duplicate(e.root, path, e.newID))
	return true
}

// ToggleExpanded opens the panel of the question with the given id, closing
// any other, or closes it when it is already open.
func (e *Editor) ToggleExpanded(id string) bool {
	if id != e.expanded.Key() {
		if _, ok := questionnaire.FindByID(e.root, id); !ok {
			return false
		}
	}
	e.expanded.Toggle(id)
	return true
}

func (e *Editor) BeginDrag(parentPath questionnaire.Path, fromIndex int) {
	e.drag.Start(parentPath, fromIndex)
}

func (e *Editor) Drop(parentPath questionnaire.Path, toIndex int) bool {
	next, committed := e.drag.Drop(e.root, parentPath, toIndex)
	if committed {
		e.replace(next)
	}
	return committed
}

func (e *Editor) EndDrag() {
	e.drag.End()
}

func (e *Editor) Rename(name string) {
	if e.doc.Name == name {
		return
	}
	e.doc.Name = name
	e.dirty = true
}

func (e *Editor) SetQuestionsPerRow(n int) error {
	layout := questionnaire.Layout{QuestionsPerRow: n}
	if err := questionnaire.ValidateLayout(layout); err != nil {
		return err
	}
	if e.doc.Layout != layout {
		e.doc.Layout = layout
		e.dirty = true
	}
	return nil
}

// Save validates the document and hands it to the adapter: create for a
// document without an id, update otherwise. On failure the in-memory edits are
// kept so the user can retry.
func (e *Editor) Save(ctx context.Context, adapter Adapter) (questionnaire.Document, error) {
	doc := e.Document()
	if doc.Questions == nil {
		doc.Questions = []questionnaire.Question{}
	}
	if err := questionnaire.ValidateDocument(doc); err != nil {
		return questionnaire.Document{}, err
	}

	now := e.now().UTC()
	if doc.ID == "" {
		doc.CreatedAt = now
		doc.UpdatedAt = now
		id, err := adapter.CreateDocument(ctx, doc)
		if err != nil {
			return questionnaire.Document{}, &PersistenceError{Op: "create", Err: err}
		}
		doc.ID = id
	} else {
		questions := doc.Questions
		layout := doc.Layout
		patch := questionnaire.DocumentPatch{
			Name:      &doc.Name,
			Questions: &questions,
			Layout:    &layout,
		}
		if err := adapter.UpdateDocument(ctx, doc.ID, patch); err != nil {
			return questionnaire.Document{}, &PersistenceError{Op: "update", Err: err}
		}
		doc.UpdatedAt = now
	}

	e.doc.ID = doc.ID
	e.doc.CreatedAt = doc.CreatedAt
	e.doc.UpdatedAt = doc.UpdatedAt
	e.dirty = false
	return doc, nil
}
