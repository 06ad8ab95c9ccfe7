package services

import "errors"

var (
	// ErrNotFound - запрошенная сущность не существует
	ErrNotFound = errors.New("not found")
	// ErrForbidden - действие разрешено только автору записи
	ErrForbidden = errors.New("forbidden")
	// ErrValidation - форма не прошла валидацию, запись не создана
	ErrValidation = errors.New("validation failed")
)
