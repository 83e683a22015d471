// Package api связывает HTTP маршруты сервиса с шинами команд и запросов.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/akriventsev/ordering/framework/adapters/transport"
	"github.com/akriventsev/ordering/framework/core"
	cqrstransport "github.com/akriventsev/ordering/framework/transport"
	"github.com/akriventsev/ordering/internal/domain"
)

func init() {
	transport.RegisterErrorStatus(domain.ErrDuplicateLineItem, http.StatusBadRequest)
	transport.RegisterErrorStatus(domain.ErrInsufficientStock, http.StatusConflict)
}

// Handler HTTP обработчики ресурсов orders, users и products
type Handler struct {
	commands cqrstransport.CommandBus
	queries  cqrstransport.QueryBus
	newID    func() string
}

// NewHandler создает Handler. newID выдает ID создаваемых ресурсов, nil означает uuid.NewString.
func NewHandler(commands cqrstransport.CommandBus, queries cqrstransport.QueryBus, newID func() string) *Handler {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Handler{commands: commands, queries: queries, newID: newID}
}

// Register регистрирует маршруты
func (h *Handler) Register(r gin.IRouter) {
	orders := r.Group("/orders")
	orders.GET("", h.listOrders)
	orders.POST("", h.createOrder)
	orders.GET("/:id", h.getOrder)
	orders.PATCH("/:id", h.updateOrderStatus)
	orders.DELETE("/:id", h.deleteOrder)

	users := r.Group("/users")
	users.GET("", h.listUsers)
	users.POST("", h.createUser)
	users.GET("/:id", h.getUser)
	users.PATCH("/:id", h.updateUser)
	users.DELETE("/:id", h.deleteUser)
	users.GET("/:id/saved-products", h.listSavedProducts)
	users.POST("/:id/saved-products", h.saveProduct)
	users.DELETE("/:id/saved-products/:productId", h.removeSavedProduct)

	products := r.Group("/products")
	products.GET("", h.listProducts)
	products.POST("", h.createProduct)
	products.GET("/:id", h.getProduct)
	products.PATCH("/:id", h.updateProduct)
	products.DELETE("/:id", h.deleteProduct)
}

// bindJSON декодирует тело запроса. Ошибки декодирования возвращаются как VALIDATION_ERROR.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		transport.WriteError(c, decodeError(err))
		return false
	}
	return true
}

func decodeError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.Is(err, io.EOF):
		return domain.NewValidationError("", "request body is required")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		return domain.NewValidationError(field, field+" must be "+jsonKind(typeErr.Type.Kind().String()))
	case errors.As(err, &syntaxErr):
		return domain.NewValidationError("", "request body is not valid JSON").WithDetail("offset", syntaxErr.Offset)
	}
	return core.Wrap(err, core.ErrValidation, "request body is invalid")
}

func jsonKind(kind string) string {
	switch {
	case strings.HasPrefix(kind, "int"), strings.HasPrefix(kind, "uint"):
		return "an integer"
	case strings.HasPrefix(kind, "float"):
		return "a number"
	case kind == "slice":
		return "an array"
	case kind == "struct", kind == "map":
		return "an object"
	case kind == "bool":
		return "a boolean"
	}
	return "a " + kind
}
