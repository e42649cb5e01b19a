package questionnaire

import (
	"fmt"
	"strings"
)

// ValidationError is a document-level problem that blocks saving and is shown
// to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateDocument(doc Document) error {
	if strings.TrimSpace(doc.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if err := ValidateLayout(doc.Layout); err != nil {
		return err
	}
	return ValidateQuestions(doc.Questions)
}

func ValidateLayout(layout Layout) error {
	if layout.QuestionsPerRow < MinQuestionsPerRow || layout.QuestionsPerRow > MaxQuestionsPerRow {
		return &ValidationError{
			Field:   "layout.questionsPerRow",
			Message: fmt.Sprintf("must be between %d and %d", MinQuestionsPerRow, MaxQuestionsPerRow),
		}
	}
	return nil
}

// ValidateQuestions checks ids are present and unique across the whole tree
// and that every answer type belongs to the enumeration.
func ValidateQuestions(root []Question) error {
	seen := make(map[string]string)
	var problem error
	Walk(root, func(v Visit) bool {
		q := v.Question
		field := "questions" + v.Path.String()
		if strings.TrimSpace(q.ID) == "" {
			problem = &ValidationError{Field: field + ".id", Message: "id is required"}
			return false
		}
		if other, dup := seen[q.ID]; dup {
			problem = &ValidationError{Field: field + ".id", Message: fmt.Sprintf("id %q already used at %s", q.ID, other)}
			return false
		}
		seen[q.ID] = v.Path.String()
		if !q.AnswerType.Valid() {
			problem = &ValidationError{Field: field + ".answerType", Message: fmt.Sprintf("unknown answer type %q", q.AnswerType)}
			return false
		}
		return true
	})
	return problem
}
