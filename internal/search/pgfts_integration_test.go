package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fieldbook/api/internal/questionnaire"
	"fieldbook/api/internal/store"
)

func openTestPgFTS(t *testing.T) (*PgFTS, *store.PostgresStore) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("FIELDBOOK_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("FIELDBOOK_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := store.ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPgFTS(db), store.NewPostgresStore(db)
}

func TestPgFTSIgnoresJSONKeysAndAnswerTypes(t *testing.T) {
	fts, s := openTestPgFTS(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, questionnaire.Document{
		Name: "Boiler visit",
		Questions: []questionnaire.Question{
			{ID: "q1", Title: "Flue intact", AnswerType: questionnaire.AnswerBoolean, Required: true, Children: []questionnaire.Question{
				{ID: "q2", Title: "Photo of terminal", AnswerType: questionnaire.AnswerPhotoUpload},
			}},
		},
		Layout: questionnaire.DefaultLayout(),
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	for _, word := range []string{"required", "boolean", "children", "title", "answerType"} {
		results, total, err := fts.Search(Query{Text: word})
		if err != nil {
			t.Fatalf("search %q: %v", word, err)
		}
		if total != 0 || len(results) != 0 {
			t.Fatalf("search %q matched structural JSON: %+v", word, results)
		}
	}

	results, total, err := fts.Search(Query{Text: "terminal"})
	if err != nil {
		t.Fatalf("search terminal: %v", err)
	}
	if total != 1 || len(results) != 1 || results[0].ID != id {
		t.Fatalf("expected the questionnaire to match on a title, got %d %+v", total, results)
	}
	if strings.Contains(results[0].Snippet, "{") || strings.Contains(results[0].Snippet, `"`) {
		t.Fatalf("snippet contains JSON: %q", results[0].Snippet)
	}

	// Updating the tree rewrites the indexed text.
	questions := []questionnaire.Question{{ID: "q9", Title: "Gas meter reading", AnswerType: questionnaire.AnswerNumeric}}
	if err := s.UpdateDocument(ctx, id, questionnaire.DocumentPatch{Questions: &questions}); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if _, total, _ := fts.Search(Query{Text: "terminal"}); total != 0 {
		t.Fatalf("expected stale title to stop matching, got %d", total)
	}
	if _, total, _ := fts.Search(Query{Text: "meter"}); total != 1 {
		t.Fatalf("expected new title to match, got %d", total)
	}
}
