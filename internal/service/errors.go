package service

import (
	"fmt"

	apperrors "helpdesk_chat/pkg/errors"
)

// StoreError - сбой хранилища сообщений. Сопоставляется и с ErrStore,
// и с исходной причиной.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{apperrors.ErrStore, e.Err}
}

// ValidationError - некорректный входной запрос
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrBadRequest
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
