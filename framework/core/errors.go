// Package core предоставляет систему ошибок фреймворка.
package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Коды ошибок фреймворка
const (
	ErrNotFound             = "NOT_FOUND"
	ErrAlreadyExists        = "ALREADY_EXISTS"
	ErrInvalidConfig        = "INVALID_CONFIG"
	ErrInitializationFailed = "INITIALIZATION_FAILED"
	ErrValidation           = "VALIDATION_ERROR"
	ErrConflict             = "CONFLICT"
	ErrTransactionFailed    = "TRANSACTION_FAILED"
	ErrInternal             = "INTERNAL"
)

// FrameworkError базовый тип ошибки фреймворка.
// Message и Field безопасны для отдачи клиенту, Cause - только для логов.
type FrameworkError struct {
	Code       string
	Message    string
	Field      string
	Details    map[string]interface{}
	Cause      error
	StackTrace string
}

// Error реализует интерфейс error
func (e *FrameworkError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap возвращает причину ошибки
func (e *FrameworkError) Unwrap() error {
	return e.Cause
}

// Is проверяет, соответствует ли ошибка коду
func (e *FrameworkError) Is(target error) bool {
	if t, ok := target.(*FrameworkError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithField возвращает копию ошибки с указанием поля
func (e *FrameworkError) WithField(field string) *FrameworkError {
	c := *e
	c.Field = field
	return &c
}

// WithDetail возвращает копию ошибки с дополнительной деталью
func (e *FrameworkError) WithDetail(key string, value interface{}) *FrameworkError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Details[key] = value
	return &c
}

// NewError создает новую ошибку фреймворка
func NewError(code, message string) *FrameworkError {
	return &FrameworkError{
		Code:       code,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code, message string) *FrameworkError {
	if err == nil {
		return nil
	}
	return &FrameworkError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStackTrace(),
	}
}

// AsFrameworkError извлекает FrameworkError из цепочки ошибок
func AsFrameworkError(err error) (*FrameworkError, bool) {
	var fe *FrameworkError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CodeOf возвращает код ошибки или ErrInternal для ошибок вне таксономии
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if fe, ok := AsFrameworkError(err); ok {
		return fe.Code
	}
	return ErrInternal
}

// HasCode проверяет код ошибки в цепочке
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}

// captureStackTrace захватывает stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// первые строки - сама captureStackTrace и конструктор
	lines := strings.Split(stack, "\n")
	if len(lines) > 5 {
		lines = lines[5:]
	}
	return strings.Join(lines, "\n")
}
