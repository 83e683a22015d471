package application

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akriventsev/ordering/internal/domain"
)

const (
	CreateProductCommandName = "products.create"
	UpdateProductCommandName = "products.update"
	DeleteProductCommandName = "products.delete"
	GetProductQueryName      = "products.get"
	ListProductsQueryName    = "products.list"
)

const categoryRule = "oneof=FASHION BEAUTY SPORTS ELECTRONICS HOME_INTERIOR KITCHENWARE HOUSEHOLD_SUPPLIES"

// CreateProductRequest тело POST /products
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Category    string `json:"category" validate:"required,oneof=FASHION BEAUTY SPORTS ELECTRONICS HOME_INTERIOR KITCHENWARE HOUSEHOLD_SUPPLIES"`
	Price       *Money `json:"price" validate:"required,min=0"`
	Stock       *int   `json:"stock" validate:"required,min=0"`
}

// UpdateProductRequest тело PATCH /products/:id, все поля необязательны.
// Stock задает новый остаток (пополнение склада).
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Category    *string `json:"category" validate:"omitempty,oneof=FASHION BEAUTY SPORTS ELECTRONICS HOME_INTERIOR KITCHENWARE HOUSEHOLD_SUPPLIES"`
	Price       *Money  `json:"price" validate:"omitempty,min=0"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
}

// validateProductCreate запрещает имя из одних пробелов и лишнюю точность цены
func validateProductCreate(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateProductRequest)
	reportBlank(sl, &req.Name, "name", "Name")
	reportMoney(sl, req.Price, "price", "Price")
}

// validateProductPatch запрещает пустое имя и пустую категорию
func validateProductPatch(sl validator.StructLevel) {
	req := sl.Current().Interface().(UpdateProductRequest)
	reportBlank(sl, req.Name, "name", "Name")
	reportMoney(sl, req.Price, "price", "Price")
	if req.Category != nil && *req.Category == "" {
		sl.ReportError(*req.Category, "category", "Category", "oneof", strings.TrimPrefix(categoryRule, "oneof="))
	}
}

// CreateProductCommand создание товара с заранее выданным ID
type CreateProductCommand struct {
	ProductID string
	Request   CreateProductRequest
}

func (CreateProductCommand) CommandName() string { return CreateProductCommandName }

// UpdateProductCommand частичное изменение товара
type UpdateProductCommand struct {
	ProductID string
	Request   UpdateProductRequest
}

func (UpdateProductCommand) CommandName() string { return UpdateProductCommandName }

// DeleteProductCommand удаление товара
type DeleteProductCommand struct {
	ProductID string
}

func (DeleteProductCommand) CommandName() string { return DeleteProductCommandName }

// GetProductQuery товар по ID
type GetProductQuery struct {
	ProductID string
}

func (GetProductQuery) QueryName() string { return GetProductQueryName }

// ListProductsQuery товары с необязательным фильтром по категории
type ListProductsQuery struct {
	Category string
}

func (ListProductsQuery) QueryName() string { return ListProductsQueryName }

// CreateProduct создает товар
func (s *Service) CreateProduct(ctx context.Context, cmd CreateProductCommand) error {
	if cmd.ProductID == "" {
		return domain.NewValidationError("id", "id is required")
	}
	if err := s.validator.Struct(cmd.Request); err != nil {
		return err
	}

	now := s.now().UTC()
	req := cmd.Request
	return s.store.Products().Create(ctx, &domain.Product{
		ID:          cmd.ProductID,
		Name:        req.Name,
		Description: req.Description,
		Category:    domain.Category(req.Category),
		Price:       req.Price.Decimal,
		Stock:       *req.Stock,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// UpdateProduct применяет переданные поля. Изменение видно в снимках товара в заказах.
func (s *Service) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) error {
	if err := checkID("product", cmd.ProductID); err != nil {
		return err
	}
	if err := s.validator.Struct(cmd.Request); err != nil {
		return err
	}

	req := cmd.Request
	_, err := s.store.Products().Update(ctx, cmd.ProductID, func(p *domain.Product) error {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Category != nil {
			p.Category = domain.Category(*req.Category)
		}
		if req.Price != nil {
			p.Price = req.Price.Decimal
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.NewProductUpdated(cmd.ProductID))
	return nil
}

// DeleteProduct удаляет товар, на который не ссылается ни одна позиция заказа
func (s *Service) DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error {
	if err := checkID("product", cmd.ProductID); err != nil {
		return err
	}
	if err := s.store.Products().Delete(ctx, cmd.ProductID); err != nil {
		return err
	}
	s.publish(ctx, domain.NewProductDeleted(cmd.ProductID))
	return nil
}

// GetProduct возвращает товар
func (s *Service) GetProduct(ctx context.Context, q GetProductQuery) (*domain.Product, error) {
	if err := checkID("product", q.ProductID); err != nil {
		return nil, err
	}
	return s.store.Products().Get(ctx, q.ProductID)
}

// ListProducts возвращает товары, отфильтрованные по категории
func (s *Service) ListProducts(ctx context.Context, q ListProductsQuery) ([]*domain.Product, error) {
	var filter domain.ProductFilter
	if q.Category != "" {
		c, err := domain.ParseCategory(q.Category)
		if err != nil {
			return nil, domain.NewValidationError("category", "category must be one of "+strings.ReplaceAll(strings.TrimPrefix(categoryRule, "oneof="), " ", ", "))
		}
		filter.Category = c
	}
	return s.store.Products().List(ctx, filter)
}
