package search

import (
	"context"

	"fieldbook/api/internal/questionnaire"
	"github.com/rs/zerolog"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili   *Meili
	primary Searcher
	indexer Indexer
	pgfts   *PgFTS
	log     zerolog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, pgfts *PgFTS, log zerolog.Logger) *Service {
	s := &Service{meili: meili, pgfts: pgfts, log: log.With().Str("component", "search").Logger()}
	if meili != nil {
		s.primary = meili
		s.indexer = meili
	}
	return s
}

func (s *Service) primaryHealthy() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries the primary index if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.primaryHealthy() {
		results, total, err := s.primary.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn().Err(err).Msg("primary search failed, falling back to pgfts")
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(q)
	if err != nil {
		s.log.Error().Err(err).Msg("pgfts search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexQuestionnaire indexes a saved document (fire-and-forget).
func (s *Service) IndexQuestionnaire(doc questionnaire.Document) {
	if s.indexer == nil || !s.primaryHealthy() {
		return
	}
	rec := RecordFor(doc)
	go func() {
		if err := s.indexer.IndexQuestionnaire(rec); err != nil {
			s.log.Error().Err(err).Str("document_id", rec.ID).Msg("index questionnaire")
		}
	}()
}

// DeleteQuestionnaire removes a document from the index (fire-and-forget).
func (s *Service) DeleteQuestionnaire(id string) {
	if s.indexer == nil || !s.primaryHealthy() {
		return
	}
	go func() {
		if err := s.indexer.DeleteQuestionnaire(id); err != nil {
			s.log.Error().Err(err).Str("document_id", id).Msg("delete questionnaire from index")
		}
	}()
}

// ReindexAllFromPG pushes every stored questionnaire into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reindex load failed")
		return
	}
	if err := s.meili.IndexQuestionnaires(records); err != nil {
		s.log.Error().Err(err).Int("records", len(records)).Msg("reindex questionnaires")
		return
	}
	s.log.Info().Int("records", len(records)).Msg("reindexed questionnaires")
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
