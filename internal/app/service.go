package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"fieldbook/api/internal/archive"
	"fieldbook/api/internal/config"
	"fieldbook/api/internal/drafts"
	"fieldbook/api/internal/editor"
	"fieldbook/api/internal/gitrepo"
	"fieldbook/api/internal/questionnaire"
	"fieldbook/api/internal/search"
	"fieldbook/api/internal/store"
	"fieldbook/api/internal/util"
	"github.com/rs/zerolog"
)

const defaultActor = "system"

type dataStore interface {
	editor.Adapter
	Ping(ctx context.Context) error
}

type gitService interface {
	Record(string, gitrepo.Content, string) (gitrepo.Revision, error)
	History(string, int) ([]gitrepo.Revision, error)
	GetRevision(string, string) (gitrepo.Content, gitrepo.Revision, error)
	Remove(string) error
}

type searchService interface {
	Search(search.Query) search.Response
	IndexQuestionnaire(questionnaire.Document)
	DeleteQuestionnaire(string)
}

type archiver interface {
	Store(context.Context, questionnaire.Document) (string, error)
}

type Service struct {
	cfg     config.Config
	store   dataStore
	git     gitService
	search  searchService
	archive archiver
	drafts  drafts.Store
	log     zerolog.Logger

	newQuestionID questionnaire.IDFunc
	now           func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sessionMutex
}

func New(cfg config.Config, dataStore *store.PostgresStore, gitService *gitrepo.Service, searchSvc *search.Service, draftStore drafts.Store, log zerolog.Logger) *Service {
	s := &Service{
		cfg:    cfg,
		store:  dataStore,
		git:    gitService,
		drafts: draftStore,
		log:    log,
		now:    time.Now,
		locks:  make(map[string]*sessionMutex),
	}
	if searchSvc != nil {
		s.search = searchSvc
	}
	return s
}

// WithArchive enables archiving of deleted questionnaires.
func (s *Service) WithArchive(a *archive.Archive) *Service {
	if a != nil {
		s.archive = a
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// DraftsPing reports whether the draft store is reachable.
func (s *Service) DraftsPing(ctx context.Context) error {
	return s.drafts.Ping(ctx)
}

// Bootstrap seeds an example questionnaire into an empty database.
func (s *Service) Bootstrap(ctx context.Context) error {
	summaries, err := s.store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(summaries) > 0 {
		return nil
	}

	q := func(title string, answerType questionnaire.AnswerType, required bool, children ...questionnaire.Question) questionnaire.Question {
		out := questionnaire.NewQuestion(s.questionID())
		out.Title = title
		out.AnswerType = answerType
		out.Required = required
		out.Children = children
		return out
	}
	_, err = s.CreateQuestionnaire(ctx, defaultActor, CreateQuestionnaireInput{
		Name: "Boiler service checklist",
		Questions: []questionnaire.Question{
			q("Appliance details", questionnaire.AnswerText, true,
				q("Serial number", questionnaire.AnswerText, true),
				q("Photo of data plate", questionnaire.AnswerPhotoUpload, false),
			),
			q("Flue integrity", questionnaire.AnswerTrueFalse, true,
				q("Spillage test passed", questionnaire.AnswerBoolean, true),
			),
			q("Operating pressure (bar)", questionnaire.AnswerNumeric, true),
			q("Customer signature", questionnaire.AnswerSignature, true),
		},
		Layout: &questionnaire.Layout{QuestionsPerRow: 2},
	})
	return err
}

func (s *Service) questionID() string {
	if s.newQuestionID != nil {
		return s.newQuestionID()
	}
	return questionnaire.NewQuestionID()
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) editorOptions() []editor.Option {
	return []editor.Option{editor.WithIDFunc(s.newQuestionID), editor.WithClock(s.now)}
}

func actorOrDefault(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return defaultActor
	}
	return actor
}

// Stored questionnaires

func (s *Service) ListQuestionnaires(ctx context.Context) ([]questionnaire.Summary, error) {
	return s.store.ListDocuments(ctx)
}

func (s *Service) GetQuestionnaire(ctx context.Context, id string) (questionnaire.Document, error) {
	return s.store.LoadDocument(ctx, id)
}

type CreateQuestionnaireInput struct {
	Name      string                   `json:"name"`
	Questions []questionnaire.Question `json:"questions"`
	Layout    *questionnaire.Layout    `json:"layout"`
}

// CreateQuestionnaire stores a whole document in one step, without an editor
// session.
func (s *Service) CreateQuestionnaire(ctx context.Context, actor string, input CreateQuestionnaireInput) (questionnaire.Document, error) {
	doc := questionnaire.Document{
		Name:      strings.TrimSpace(input.Name),
		Questions: input.Questions,
		Layout:    questionnaire.DefaultLayout(),
		CreatedBy: actorOrDefault(actor),
	}
	if input.Layout != nil {
		doc.Layout = *input.Layout
	}
	saved, err := editor.New(doc, s.editorOptions()...).Save(ctx, s.store)
	if err != nil {
		return questionnaire.Document{}, err
	}
	s.afterSave(saved, actorOrDefault(actor))
	return saved, nil
}

// UpdateQuestionnaire applies a partial update to a stored document.
func (s *Service) UpdateQuestionnaire(ctx context.Context, actor, id string, patch questionnaire.DocumentPatch) (questionnaire.Document, error) {
	if patch.Empty() {
		return questionnaire.Document{}, domainError(http.StatusBadRequest, "EMPTY_PATCH", "Nothing to update", nil)
	}
	doc, err := s.store.LoadDocument(ctx, id)
	if err != nil {
		return questionnaire.Document{}, err
	}
	if patch.Name != nil {
		doc.Name = strings.TrimSpace(*patch.Name)
		patch.Name = &doc.Name
	}
	if patch.Questions != nil {
		doc.Questions = *patch.Questions
	}
	if patch.Layout != nil {
		doc.Layout = *patch.Layout
	}
	if err := questionnaire.ValidateDocument(doc); err != nil {
		return questionnaire.Document{}, err
	}
	if err := s.store.UpdateDocument(ctx, id, patch); err != nil {
		return questionnaire.Document{}, err
	}
	doc.UpdatedAt = s.clock().UTC()
	s.afterSave(doc, actorOrDefault(actor))
	return doc, nil
}

// DeleteQuestionnaire removes a document with its whole tree. The final state
// is archived first when an archive is configured; archive failures are
// logged and do not block the delete.
func (s *Service) DeleteQuestionnaire(ctx context.Context, actor, id string) error {
	doc, err := s.store.LoadDocument(ctx, id)
	if err != nil {
		return err
	}
	if s.archive != nil {
		if key, err := s.archive.Store(ctx, doc); err != nil {
			s.log.Error().Err(err).Str("document_id", id).Msg("archive questionnaire")
		} else {
			s.log.Info().Str("document_id", id).Str("key", key).Msg("archived questionnaire")
		}
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteQuestionnaire(id)
	}
	if err := s.git.Remove(id); err != nil {
		s.log.Warn().Err(err).Str("document_id", id).Msg("remove revision history")
	}
	s.log.Info().Str("document_id", id).Str("actor", actorOrDefault(actor)).Msg("deleted questionnaire")
	return nil
}

func (s *Service) History(ctx context.Context, id string, limit int) ([]gitrepo.Revision, error) {
	if _, err := s.store.LoadDocument(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.git.History(id, limit)
}

func (s *Service) Search(text string, limit, offset int) search.Response {
	if s.search == nil || strings.TrimSpace(text) == "" {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(search.Query{Text: text, Limit: limit, Offset: offset})
}

func (s *Service) afterSave(doc questionnaire.Document, actor string) {
	if _, err := s.git.Record(doc.ID, gitrepo.ContentFor(doc), actor); err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID).Msg("record revision")
	}
	if s.search != nil {
		s.search.IndexQuestionnaire(doc)
	}
	s.log.Info().
		Str("document_id", doc.ID).
		Str("actor", actor).
		Int("questions", questionnaire.CountTotal(doc.Questions)).
		Msg("saved questionnaire")
}

// Editor sessions

type StartSessionInput struct {
	DocumentID string `json:"documentId"`
	Revision   string `json:"revision"`
}

// SessionView is returned by every editor operation. Applied is false when
// the operation was a no-op, for example because its path no longer resolves.
type SessionView struct {
	SessionID string `json:"sessionId"`
	Applied   bool   `json:"applied"`
	AddedID   string `json:"addedId,omitempty"`
	editor.View
}

func (s *Service) StartSession(ctx context.Context, actor string, input StartSessionInput) (SessionView, error) {
	var ed *editor.Editor
	switch {
	case input.DocumentID == "":
		if input.Revision != "" {
			return SessionView{}, domainError(http.StatusBadRequest, "INVALID_INPUT", "revision requires documentId", nil)
		}
		ed = editor.Blank(actorOrDefault(actor), s.editorOptions()...)
	case input.Revision == "":
		opened, err := editor.Open(ctx, s.store, input.DocumentID, s.editorOptions()...)
		if err != nil {
			return SessionView{}, err
		}
		ed = opened
	default:
		doc, err := s.store.LoadDocument(ctx, input.DocumentID)
		if err != nil {
			return SessionView{}, err
		}
		content, _, err := s.git.GetRevision(input.DocumentID, input.Revision)
		if err != nil {
			return SessionView{}, err
		}
		ed = editor.FromState(editor.State{Document: content.Apply(doc), Dirty: true}, s.editorOptions()...)
	}

	sessionID := util.NewID("es")
	if err := s.drafts.Save(ctx, sessionID, ed.State()); err != nil {
		return SessionView{}, err
	}
	return SessionView{SessionID: sessionID, Applied: true, View: ed.View()}, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (SessionView, error) {
	state, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	ed := editor.FromState(state, s.editorOptions()...)
	return SessionView{SessionID: sessionID, Applied: true, View: ed.View()}, nil
}

type editFunc func(ctx context.Context, ed *editor.Editor) (applied bool, addedID string, err error)

// edit runs one operation against a draft. Operations on the same session are
// serialised; the draft is written back even when the operation was a no-op
// so that drag state and the TTL are kept current.
func (s *Service) edit(ctx context.Context, sessionID string, fn editFunc) (SessionView, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	state, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	ed := editor.FromState(state, s.editorOptions()...)

	applied, addedID, opErr := fn(ctx, ed)
	var persistErr *editor.PersistenceError
	if opErr != nil && !errors.As(opErr, &persistErr) {
		return SessionView{}, opErr
	}

	if err := s.drafts.Save(ctx, sessionID, ed.State()); err != nil {
		return SessionView{}, err
	}
	if opErr != nil {
		return SessionView{}, opErr
	}
	return SessionView{SessionID: sessionID, Applied: applied, AddedID: addedID, View: ed.View()}, nil
}

// sessionMutex is held in the lock table only while an operation holds it
// or waits for it, so ids that never resolve to a draft leave nothing behind.
type sessionMutex struct {
	mu   sync.Mutex
	refs int
}

// lockSession serialises operations on one session and returns the release
// func.
func (s *Service) lockSession(sessionID string) func() {
	s.lockMu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sessionMutex)
	}
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionMutex{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.lockMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.lockMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.lockMu.Unlock()
	}
}

func (s *Service) AddQuestion(ctx context.Context, sessionID string, parentPath questionnaire.Path) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		id, ok := ed.AddQuestion(parentPath)
		return ok, id, nil
	})
}

func (s *Service) UpdateQuestion(ctx context.Context, sessionID string, path questionnaire.Path, patch questionnaire.Patch) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		return ed.UpdateQuestion(path, patch), "", nil
	})
}

func (s *Service) RemoveQuestion(ctx context.Context, sessionID string, path questionnaire.Path) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		return ed.RemoveQuestion(path), "", nil
	})
}

func (s *Service) DuplicateQuestion(ctx context.Context, sessionID string, path questionnaire.Path) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		return ed.DuplicateQuestion(path), "", nil
	})
}

func (s *Service) ToggleExpanded(ctx context.Context, sessionID, key string) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		return ed.ToggleExpanded(key), "", nil
	})
}

func (s *Service) BeginDrag(ctx context.Context, sessionID string, parentPath questionnaire.Path, fromIndex int) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		ed.BeginDrag(parentPath, fromIndex)
		return true, "", nil
	})
}

func (s *Service) Drop(ctx context.Context, sessionID string, parentPath questionnaire.Path, toIndex int) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		return ed.Drop(parentPath, toIndex), "", nil
	})
}

func (s *Service) EndDrag(ctx context.Context, sessionID string) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		ed.EndDrag()
		return true, "", nil
	})
}

type UpdateMetaInput struct {
	Name            *string `json:"name"`
	QuestionsPerRow *int    `json:"questionsPerRow"`
}

func (s *Service) UpdateMeta(ctx context.Context, sessionID string, input UpdateMetaInput) (SessionView, error) {
	return s.edit(ctx, sessionID, func(_ context.Context, ed *editor.Editor) (bool, string, error) {
		if input.QuestionsPerRow != nil {
			if err := ed.SetQuestionsPerRow(*input.QuestionsPerRow); err != nil {
				return false, "", err
			}
		}
		if input.Name != nil {
			ed.Rename(*input.Name)
		}
		return input.Name != nil || input.QuestionsPerRow != nil, "", nil
	})
}

// SaveSession persists the draft. The draft stays open after a successful
// save so editing can continue; on failure every edit is kept.
func (s *Service) SaveSession(ctx context.Context, actor, sessionID string) (SessionView, error) {
	return s.edit(ctx, sessionID, func(ctx context.Context, ed *editor.Editor) (bool, string, error) {
		saved, err := ed.Save(ctx, s.store)
		if err != nil {
			var persistErr *editor.PersistenceError
			if errors.As(err, &persistErr) {
				s.log.Error().Err(err).Str("session_id", sessionID).Str("op", persistErr.Op).Msg("save questionnaire")
			}
			return false, "", err
		}
		s.afterSave(saved, actorOrDefault(actor))
		return true, "", nil
	})
}

// CloseSession discards the draft without saving.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	if _, err := s.drafts.Get(ctx, sessionID); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, sessionID)
}
