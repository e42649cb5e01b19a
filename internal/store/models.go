package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"fieldbook/api/internal/questionnaire"
)

var ErrNotFound = errors.New("questionnaire not found")

func encodeQuestions(questions []questionnaire.Question) (string, error) {
	if questions == nil {
		questions = []questionnaire.Question{}
	}
	payload, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("encode questions: %w", err)
	}
	return string(payload), nil
}

func decodeQuestions(raw []byte) ([]questionnaire.Question, error) {
	questions := []questionnaire.Question{}
	if len(raw) == 0 {
		return questions, nil
	}
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

func encodeLayout(layout questionnaire.Layout) (string, error) {
	payload, err := json.Marshal(layout)
	if err != nil {
		return "", fmt.Errorf("encode layout: %w", err)
	}
	return string(payload), nil
}

func decodeLayout(raw []byte) (questionnaire.Layout, error) {
	layout := questionnaire.DefaultLayout()
	if len(raw) == 0 {
		return layout, nil
	}
	if err := json.Unmarshal(raw, &layout); err != nil {
		return questionnaire.Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if layout.QuestionsPerRow == 0 {
		layout = questionnaire.DefaultLayout()
	}
	return layout, nil
}
