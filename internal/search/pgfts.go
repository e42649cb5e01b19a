package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"fieldbook/api/internal/questionnaire"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// The expression must match idx_questionnaires_fts for the index to be used.
// search_text holds titles and descriptions only, the same text Meilisearch
// indexes, so JSON keys and answer types never match.
const ftsVector = "to_tsvector('english', q.name || ' ' || q.search_text)"

func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	where := ftsVector + " @@ " + tsQuery

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM questionnaires q WHERE "+where, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT q.id, q.name,
			ts_headline('english', q.search_text, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			q.question_count
		FROM questionnaires q
		WHERE %s
		ORDER BY ts_rank(%s, %s) DESC, q.created_at DESC
		LIMIT %d OFFSET %d`, tsQuery, where, ftsVector, tsQuery, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Name, &r.Snippet, &r.QuestionCount); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every questionnaire as an index record for full
// reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, questions, created_by FROM questionnaires`)
	if err != nil {
		return nil, fmt.Errorf("load questionnaires: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			doc       questionnaire.Document
			questions []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &questions, &doc.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan questionnaire: %w", err)
		}
		if err := json.Unmarshal(questions, &doc.Questions); err != nil {
			return nil, fmt.Errorf("decode questionnaire %s: %w", doc.ID, err)
		}
		records = append(records, RecordFor(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questionnaires: %w", err)
	}
	return records, nil
}
