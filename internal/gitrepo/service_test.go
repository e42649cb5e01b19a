package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fieldbook/api/internal/questionnaire"
)

func sampleContent() Content {
	return Content{
		Name:   "Electrical installation",
		Layout: questionnaire.Layout{QuestionsPerRow: 2},
		Questions: []questionnaire.Question{
			{ID: "q1", Title: "Consumer unit labelled", AnswerType: questionnaire.AnswerBoolean, Children: []questionnaire.Question{
				{ID: "q2", Title: "Photo of labels", AnswerType: questionnaire.AnswerPhotoUpload},
			}},
		},
	}
}

func TestRecordLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first, err := svc.Record("qn_1", sampleContent(), "Avery")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if first.Hash == "" || first.Message != "Create questionnaire" || first.Author != "Avery" {
		t.Fatalf("unexpected first revision %+v", first)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "qn_1", contentFile)); err != nil {
		t.Fatalf("content file missing: %v", err)
	}

	updated := sampleContent()
	updated.Name = "Electrical installation (EICR)"
	updated.Questions = append(updated.Questions, questionnaire.NewQuestion("q3"))
	second, err := svc.Record("qn_1", updated, "Avery")
	if err != nil {
		t.Fatalf("Record() update error = %v", err)
	}
	if second.Message != "Update name, questions" {
		t.Fatalf("unexpected message %q", second.Message)
	}

	history, err := svc.History("qn_1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Hash != second.Hash || history[1].Hash != first.Hash {
		t.Fatalf("unexpected history %+v", history)
	}

	old, rev, err := svc.GetRevision("qn_1", first.Hash)
	if err != nil {
		t.Fatalf("GetRevision() error = %v", err)
	}
	if old.Name != "Electrical installation" || rev.Hash != first.Hash {
		t.Fatalf("unexpected revision content %+v", old)
	}
	if questionnaire.CountTotal(old.Questions) != 2 || old.Questions[0].Children[0].AnswerType != questionnaire.AnswerPhotoUpload {
		t.Fatalf("nested questions lost: %+v", old.Questions)
	}
}

func TestRecordUnchangedContentDoesNotCommit(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.Record("qn_1", sampleContent(), "Avery")
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.Record("qn_1", sampleContent(), "Blake")
	if err != nil {
		t.Fatalf("Record() unchanged error = %v", err)
	}
	if again.Hash != first.Hash {
		t.Fatalf("expected head %s to be reused, got %s", first.Hash, again.Hash)
	}

	history, _ := svc.History("qn_1", 0)
	if len(history) != 1 {
		t.Fatalf("expected single revision, got %d", len(history))
	}
}

func TestHistoryOfUnknownDocumentIsEmpty(t *testing.T) {
	svc := New(t.TempDir())
	history, err := svc.History("qn_missing", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestGetRevisionNotFound(t *testing.T) {
	svc := New(t.TempDir())
	if _, _, err := svc.GetRevision("qn_missing", "abc1234"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound for missing repo, got %v", err)
	}

	if _, err := svc.Record("qn_1", sampleContent(), "Avery"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.GetRevision("qn_1", "0000000"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound for bad hash, got %v", err)
	}
}

func TestRemoveDropsHistory(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Record("qn_1", sampleContent(), "Avery"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Remove("qn_1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	history, err := svc.History("qn_1", 10)
	if err != nil || len(history) != 0 {
		t.Fatalf("expected no history after remove, got %v %v", history, err)
	}
	if err := svc.Remove("qn_1"); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
}

func TestContentApplyKeepsIdentity(t *testing.T) {
	doc := questionnaire.Document{ID: "qn_1", Name: "Current", CreatedBy: "Avery"}
	restored := sampleContent().Apply(doc)
	if restored.ID != "qn_1" || restored.CreatedBy != "Avery" || restored.Name != "Electrical installation" {
		t.Fatalf("unexpected restored document %+v", restored)
	}
	if ContentFor(questionnaire.Document{}).Questions == nil {
		t.Fatal("ContentFor must never produce null questions")
	}
}

func TestChangedFields(t *testing.T) {
	base := sampleContent()
	if got := ChangedFields(base, sampleContent()); len(got) != 0 {
		t.Fatalf("expected no changes, got %v", got)
	}

	next := sampleContent()
	next.Layout.QuestionsPerRow = 4
	next.Questions[0].Children[0].Required = true
	if got := strings.Join(ChangedFields(base, next), ","); got != "layout,questions" {
		t.Fatalf("unexpected changed fields %s", got)
	}

	if got := ChangedFields(Content{}, Content{Questions: []questionnaire.Question{}}); len(got) != 0 {
		t.Fatalf("nil and empty question lists must compare equal, got %v", got)
	}
}

func TestConcurrentRecordSameDocument(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Record("qn_1", sampleContent(), "Avery"); err != nil {
		t.Fatal(err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := sampleContent()
			next.Name = fmt.Sprintf("revision-%02d", idx)
			if _, err := svc.Record("qn_1", next, "Avery"); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("Record() concurrent error = %v", err)
		}
	}

	history, err := svc.History("qn_1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers+1 {
		t.Fatalf("expected %d revisions, got %d", writers+1, len(history))
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := sanitizeEmail("Ana María-López"); got != "Ana.Mara.Lpez" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if got := sanitizeEmail("!!"); got != "user" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
