package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chatsync/internal/metrics"
	"github.com/chatsync/internal/overlay"
	"github.com/chatsync/internal/store"
)

var (
	// ErrPermissionDenied: команда отклонена до любой локальной мутации.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRemoteWrite: запись в бэкенд не прошла; оптимистичное состояние остаётся.
	ErrRemoteWrite = errors.New("remote write failed")

	ErrInvalidInput = errors.New("invalid input")
)

// RemoteWriteError несёт имя команды и исходную ошибку бэкенда.
type RemoteWriteError struct {
	Op  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("%s: remote write failed: %v", e.Op, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func (e *RemoteWriteError) Is(target error) bool { return target == ErrRemoteWrite }

var validate = validator.New()

// validateStruct проверяет теги validate и собирает читаемое сообщение.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, ", "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// outcome: метка результата команды для метрик.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, store.ErrInvalidOperation):
		return metrics.OutcomeInvalid
	case errors.Is(err, store.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, overlay.ErrPasscodeRequired),
		errors.Is(err, overlay.ErrPasscodeMismatch):
		return metrics.OutcomeDenied
	case errors.Is(err, ErrRemoteWrite):
		return metrics.OutcomeRemoteError
	default:
		return metrics.OutcomeError
	}
}
