package app

import (
	"errors"
	"fmt"
	"net/http"

	"fieldbook/api/internal/drafts"
	"fieldbook/api/internal/editor"
	"fieldbook/api/internal/gitrepo"
	"fieldbook/api/internal/questionnaire"
	"fieldbook/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *questionnaire.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Message, map[string]string{"field": validationErr.Field}
	}
	var persistErr *editor.PersistenceError
	if errors.As(err, &persistErr) {
		if errors.Is(err, store.ErrNotFound) {
			return http.StatusNotFound, "NOT_FOUND", "Questionnaire not found", nil
		}
		if persistErr.Op == "load" {
			return http.StatusBadGateway, "PERSISTENCE_FAILURE", "The questionnaire could not be loaded; try again", map[string]string{"op": persistErr.Op}
		}
		return http.StatusBadGateway, "PERSISTENCE_FAILURE", "The questionnaire could not be saved; your edits are kept", map[string]string{"op": persistErr.Op}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Questionnaire not found", nil
	case errors.Is(err, drafts.ErrNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "Editor session not found or expired", nil
	case errors.Is(err, gitrepo.ErrRevisionNotFound):
		return http.StatusNotFound, "REVISION_NOT_FOUND", "Revision not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
