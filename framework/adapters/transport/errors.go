package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/ordering/framework/core"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody описание ошибки для клиента
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var statusByCode = map[string]int{}

// RegisterErrorStatus связывает код ошибки с HTTP статусом
func RegisterErrorStatus(code string, status int) {
	statusByCode[code] = status
}

func init() {
	RegisterErrorStatus(core.ErrValidation, http.StatusBadRequest)
	RegisterErrorStatus(core.ErrNotFound, http.StatusNotFound)
	RegisterErrorStatus(core.ErrAlreadyExists, http.StatusConflict)
	RegisterErrorStatus(core.ErrConflict, http.StatusConflict)
	RegisterErrorStatus(core.ErrTransactionFailed, http.StatusInternalServerError)
}

// StatusFor возвращает HTTP статус для кода ошибки
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewErrorResponse строит тело ответа. Для 5xx сообщение заменяется общим,
// чтобы не раскрывать детали хранилища.
func NewErrorResponse(err error) (int, ErrorResponse) {
	fe, ok := core.AsFrameworkError(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{
			Code:    core.ErrInternal,
			Message: "internal server error",
		}}
	}

	status := StatusFor(fe.Code)
	body := ErrorBody{
		Code:    fe.Code,
		Message: fe.Message,
		Field:   fe.Field,
		Details: fe.Details,
	}
	if status >= http.StatusInternalServerError {
		body.Field = ""
		body.Details = nil
		switch fe.Code {
		case core.ErrTransactionFailed:
			body.Message = "transaction failed, please retry"
		default:
			body.Code = core.ErrInternal
			body.Message = "internal server error"
		}
	}
	return status, ErrorResponse{Error: body}
}

// WriteError пишет ошибку в ответ и прикрепляет ее к контексту gin
func WriteError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := NewErrorResponse(err)
	c.JSON(status, body)
}
