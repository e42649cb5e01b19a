// Package questionnaire holds the checklist tree model and the pure operations
// the editor applies to it: path resolution, clone-on-write mutations,
// same-parent reordering and pre-order traversal.
package questionnaire

import (
	"encoding/json"
	"fmt"
	"time"
)

type AnswerType string

const (
	AnswerBoolean               AnswerType = "boolean"
	AnswerTrueFalse             AnswerType = "trueFalse"
	AnswerText                  AnswerType = "text"
	AnswerNumeric               AnswerType = "numeric"
	AnswerSingleChoiceChecklist AnswerType = "singleChoiceChecklist"
	AnswerPhotoUpload           AnswerType = "photoUpload"
	AnswerSignature             AnswerType = "signature"
)

var answerTypes = []AnswerType{
	AnswerBoolean,
	AnswerTrueFalse,
	AnswerText,
	AnswerNumeric,
	AnswerSingleChoiceChecklist,
	AnswerPhotoUpload,
	AnswerSignature,
}

// AnswerTypes returns the fixed enumeration in display order.
func AnswerTypes() []AnswerType {
	out := make([]AnswerType, len(answerTypes))
	copy(out, answerTypes)
	return out
}

func (a AnswerType) Valid() bool {
	for _, candidate := range answerTypes {
		if a == candidate {
			return true
		}
	}
	return false
}

func ParseAnswerType(value string) (AnswerType, error) {
	answerType := AnswerType(value)
	if !answerType.Valid() {
		return "", fmt.Errorf("unknown answer type %q", value)
	}
	return answerType, nil
}

func (a *AnswerType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode answer type: %w", err)
	}
	parsed, err := ParseAnswerType(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Question is one node of a questionnaire. Each node owns its children; there
// are no parent back-references.
type Question struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AnswerType  AnswerType `json:"answerType"`
	Required    bool       `json:"required"`
	Children    []Question `json:"children"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	type plain Question
	out := plain(q)
	if out.Children == nil {
		out.Children = []Question{}
	}
	return json.Marshal(out)
}

// NewQuestion returns the blank question the editor creates at a chosen parent.
func NewQuestion(id string) Question {
	return Question{
		ID:         id,
		AnswerType: AnswerBoolean,
	}
}

const (
	MinQuestionsPerRow = 1
	MaxQuestionsPerRow = 4
)

type Layout struct {
	QuestionsPerRow int `json:"questionsPerRow"`
}

func DefaultLayout() Layout {
	return Layout{QuestionsPerRow: MinQuestionsPerRow}
}

type Document struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
	Layout    Layout     `json:"layout"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	CreatedBy string     `json:"createdBy"`
}

// DocumentPatch is a partial update handed to the persistence layer. Nil
// fields are left as stored.
type DocumentPatch struct {
	Name      *string     `json:"name,omitempty"`
	Questions *[]Question `json:"questions,omitempty"`
	Layout    *Layout     `json:"layout,omitempty"`
}

func (p DocumentPatch) Empty() bool {
	return p.Name == nil && p.Questions == nil && p.Layout == nil
}

// Summary is the listing row for a stored document.
type Summary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount"`
}

// Clone deep-copies the document including every nested question.
func (d Document) Clone() Document {
	out := d
	out.Questions = cloneList(d.Questions)
	return out
}

func cloneQuestion(q Question) Question {
	out := q
	out.Children = cloneList(q.Children)
	return out
}

func cloneList(list []Question) []Question {
	if list == nil {
		return nil
	}
	out := make([]Question, len(list))
	for i, item := range list {
		out[i] = cloneQuestion(item)
	}
	return out
}
