package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldbook/api/internal/questionnaire"
	"fieldbook/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListDocuments returns every stored questionnaire, newest first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]questionnaire.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, question_count
		FROM questionnaires
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	defer rows.Close()

	items := make([]questionnaire.Summary, 0)
	for rows.Next() {
		var item questionnaire.Summary
		if err := rows.Scan(&item.ID, &item.Name, &item.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan questionnaire: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questionnaires: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) LoadDocument(ctx context.Context, id string) (questionnaire.Document, error) {
	var (
		doc       questionnaire.Document
		questions []byte
		layout    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, questions, layout, created_by, created_at, updated_at
		FROM questionnaires
		WHERE id=$1
	`, id).Scan(&doc.ID, &doc.Name, &questions, &layout, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return questionnaire.Document{}, ErrNotFound
	}
	if err != nil {
		return questionnaire.Document{}, fmt.Errorf("load questionnaire: %w", err)
	}

	if doc.Questions, err = decodeQuestions(questions); err != nil {
		return questionnaire.Document{}, err
	}
	if doc.Layout, err = decodeLayout(layout); err != nil {
		return questionnaire.Document{}, err
	}
	return doc, nil
}

// CreateDocument inserts a new questionnaire and returns its id. An id is
// generated when doc.ID is empty.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc questionnaire.Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = util.NewID("qn")
	}
	createdBy := strings.TrimSpace(doc.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	questions, err := encodeQuestions(doc.Questions)
	if err != nil {
		return "", err
	}
	layout, err := encodeLayout(doc.Layout)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questionnaires (id, name, questions, layout, question_count, search_text, created_by, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7, $8, $8)
	`, id, doc.Name, questions, layout, questionnaire.CountTotal(doc.Questions),
		questionnaire.SearchText(doc.Questions), createdBy, createdAt)
	if err != nil {
		return "", fmt.Errorf("insert questionnaire: %w", err)
	}
	return id, nil
}

// UpdateDocument applies a partial update. Fields left nil in the patch keep
// their stored value; the last writer wins.
func (s *PostgresStore) UpdateDocument(ctx context.Context, id string, patch questionnaire.DocumentPatch) error {
	var (
		name       any
		questions  any
		count      any
		searchText any
		layout     any
	)
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Questions != nil {
		encoded, err := encodeQuestions(*patch.Questions)
		if err != nil {
			return err
		}
		questions = encoded
		count = questionnaire.CountTotal(*patch.Questions)
		searchText = questionnaire.SearchText(*patch.Questions)
	}
	if patch.Layout != nil {
		encoded, err := encodeLayout(*patch.Layout)
		if err != nil {
			return err
		}
		layout = encoded
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE questionnaires
		SET name=COALESCE($2, name),
			questions=COALESCE($3::jsonb, questions),
			question_count=COALESCE($4::integer, question_count),
			search_text=COALESCE($5::text, search_text),
			layout=COALESCE($6::jsonb, layout),
			updated_at=NOW()
		WHERE id=$1
	`, id, name, questions, count, searchText, layout)
	if err != nil {
		return fmt.Errorf("update questionnaire: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update questionnaire rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM questionnaires WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete questionnaire: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete questionnaire rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
