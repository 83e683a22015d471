package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/internal/domain"
)

// Пределы денежных сумм совпадают с numeric(12,2) в схеме PostgreSQL
const maxMoneyScale = 2

var maxMoney = decimal.New(1, 10)

// Money денежная сумма в теле запроса. Принимается только JSON число.
type Money struct {
	decimal.Decimal
}

// NewMoney создает Money из decimal
func NewMoney(d decimal.Decimal) *Money {
	return &Money{Decimal: d}
}

// UnmarshalJSON отклоняет суммы, переданные строкой
func (m *Money) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(float64(0))}
	}
	return m.Decimal.UnmarshalJSON(data)
}

// CreateOrderRequest тело POST /orders
type CreateOrderRequest struct {
	UserID     string             `json:"userId" validate:"required,uuid4"`
	OrderItems []OrderItemRequest `json:"orderItems" validate:"required,min=1,dive"`
}

// OrderItemRequest позиция в теле POST /orders
type OrderItemRequest struct {
	ProductID string           `json:"productId" validate:"required,uuid4"`
	UnitPrice *Money `json:"unitPrice" validate:"required,min=0"`
	Quantity  *int   `json:"quantity" validate:"required,min=1"`
}

// UpdateOrderStatusRequest тело PATCH /orders/:id
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING COMPLETE"`
}

// ValidatedOrder проверенный запрос на создание заказа
type ValidatedOrder struct {
	UserID string
	Items  []ValidatedItem
}

// ValidatedItem проверенная позиция
type ValidatedItem struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Validator проверяет входящие запросы и возвращает VALIDATION_ERROR с путем поля
type Validator struct {
	validate *validator.Validate
}

// NewValidator создает валидатор с именами полей из json тегов
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		var d decimal.Decimal
		switch value := field.Interface().(type) {
		case decimal.Decimal:
			d = value
		case Money:
			d = value.Decimal
		default:
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{}, Money{})
	v.RegisterStructValidation(validateOrderItem, OrderItemRequest{})
	v.RegisterStructValidation(validateUserCreate, CreateUserRequest{})
	v.RegisterStructValidation(validateUserPatch, UpdateUserRequest{})
	v.RegisterStructValidation(validateProductCreate, CreateProductRequest{})
	v.RegisterStructValidation(validateProductPatch, UpdateProductRequest{})
	return &Validator{validate: v}
}

// Struct проверяет структуру запроса по validate тегам
func (v *Validator) Struct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return core.Wrap(err, core.ErrValidation, "invalid request")
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	return domain.NewValidationError(field, fmt.Sprintf("%s %s", field, describe(fe))).
		WithDetail("rule", fe.Tag())
}

// ValidateCreateOrder проверяет форму заказа без обращения к хранилищу
func (v *Validator) ValidateCreateOrder(req CreateOrderRequest) (ValidatedOrder, error) {
	if err := v.Struct(req); err != nil {
		return ValidatedOrder{}, err
	}

	out := ValidatedOrder{
		UserID: req.UserID,
		Items:  make([]ValidatedItem, len(req.OrderItems)),
	}
	for i, item := range req.OrderItems {
		out.Items[i] = ValidatedItem{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice.Decimal,
			Quantity:  *item.Quantity,
		}
	}
	return out, nil
}

func validateOrderItem(sl validator.StructLevel) {
	req := sl.Current().Interface().(OrderItemRequest)
	reportMoney(sl, req.UnitPrice, "unitPrice", "UnitPrice")
}

// reportMoney отклоняет суммы с точностью больше копеек и вне numeric(12,2)
func reportMoney(sl validator.StructLevel, value *Money, field, structField string) {
	if value == nil {
		return
	}
	d := value.Decimal
	if !d.Equal(d.Round(maxMoneyScale)) || d.Abs().GreaterThanOrEqual(maxMoney) {
		sl.ReportError(d.String(), field, structField, "money", "")
	}
}

// reportBlank отклоняет пустые строки и строки из одних пробелов
func reportBlank(sl validator.StructLevel, value *string, field, structField string) {
	if value != nil && strings.TrimSpace(*value) == "" {
		sl.ReportError(*value, field, structField, "min", "1")
	}
}

// ValidateStatus проверяет новый статус заказа
func (v *Validator) ValidateStatus(req UpdateOrderStatusRequest) (domain.OrderStatus, error) {
	if err := v.Struct(req); err != nil {
		return "", err
	}
	return domain.ParseOrderStatus(req.Status)
}

// fieldPath отбрасывает имя корневой структуры: "CreateOrderRequest.orderItems[1].quantity" -> "orderItems[1].quantity"
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid4":
		return "must be a UUID v4"
	case "email":
		return "must be a valid email address"
	case "money":
		return fmt.Sprintf("must have at most %d decimal places and be less than %s", maxMoneyScale, maxMoney.String())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be at least %s character(s) long", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be at most %s character(s) long", fe.Param())
		}
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}
