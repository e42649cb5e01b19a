package search

import "fieldbook/api/internal/questionnaire"

// Result is a single search hit returned to the caller.
type Result struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Snippet       string `json:"snippet"`
	QuestionCount int    `json:"questionCount"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push questionnaires into a search index.
type Indexer interface {
	IndexQuestionnaire(rec Record) error
	DeleteQuestionnaire(id string) error
}

// Record is the data we index for a questionnaire. Questions holds every
// title and description in render order, one per line.
type Record struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Questions     string `json:"questions"`
	QuestionCount int    `json:"questionCount"`
	CreatedBy     string `json:"createdBy"`
}

// RecordFor builds the index record for a stored document.
func RecordFor(doc questionnaire.Document) Record {
	return Record{
		ID:            doc.ID,
		Name:          doc.Name,
		Questions:     questionnaire.SearchText(doc.Questions),
		QuestionCount: questionnaire.CountTotal(doc.Questions),
		CreatedBy:     doc.CreatedBy,
	}
}
