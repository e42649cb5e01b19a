package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldbook/api/internal/editor"
	"fieldbook/api/internal/questionnaire"
	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func sampleState() editor.State {
	e := editor.Blank("Jordan")
	e.Rename("Boiler service")
	id, _ := e.AddQuestion(questionnaire.Path{})
	e.AddQuestion(questionnaire.Path{0})
	e.ToggleExpanded(id)
	e.BeginDrag(questionnaire.Path{}, 0)
	return e.State()
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url", time.Hour); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndGetDraft(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	state := sampleState()

	if err := store.Save(ctx, "es_1", state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !s.Exists("draft:es_1") {
		t.Fatal("expected draft stored under the draft: prefix")
	}

	got, err := store.Get(ctx, "es_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Document.Name != "Boiler service" || questionnaire.CountTotal(got.Document.Questions) != 2 {
		t.Fatalf("unexpected document %+v", got.Document)
	}
	if got.Expanded != state.Expanded || got.Drag == nil || !got.Dirty {
		t.Fatalf("session state lost: %+v", got)
	}
}

func TestGetExpiredDraft(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Save(ctx, "es_old", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.FastForward(2 * time.Hour)

	if _, err := store.Get(ctx, "es_old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMissingDraft(t *testing.T) {
	store, _ := setupTestRedis(t)
	if _, err := store.Get(context.Background(), "es_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCorruptDraft(t *testing.T) {
	store, s := setupTestRedis(t)
	if err := s.Set("draft:es_bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	_, err := store.Get(context.Background(), "es_bad")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestDeleteDraft(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Save(ctx, "es_1", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, "es_1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "es_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "es_1"); err != nil {
		t.Errorf("deleting a missing draft failed: %v", err)
	}
}

func TestSaveRefreshesTTL(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Save(ctx, "es_1", sampleState()); err != nil {
		t.Fatal(err)
	}
	s.FastForward(45 * time.Minute)
	if err := store.Save(ctx, "es_1", sampleState()); err != nil {
		t.Fatal(err)
	}
	s.FastForward(45 * time.Minute)

	if _, err := store.Get(ctx, "es_1"); err != nil {
		t.Fatalf("expected draft kept alive by second save, got %v", err)
	}
}
