package application

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akriventsev/ordering/internal/domain"
)

const (
	CreateUserCommandName         = "users.create"
	UpdateUserCommandName         = "users.update"
	DeleteUserCommandName         = "users.delete"
	SaveProductCommandName        = "users.save_product"
	RemoveSavedProductCommandName = "users.remove_saved_product"
	GetUserQueryName              = "users.get"
	ListUsersQueryName            = "users.list"
	ListSavedProductsQueryName    = "users.list_saved_products"
)

// UserPreferenceRequest настройки пользователя в теле запроса
type UserPreferenceRequest struct {
	ReceiveEmail *bool `json:"receiveEmail" validate:"required"`
}

// CreateUserRequest тело POST /users
type CreateUserRequest struct {
	Email          string                 `json:"email" validate:"required,email,max=255"`
	FirstName      string                 `json:"firstName" validate:"required,min=1,max=30"`
	LastName       string                 `json:"lastName" validate:"required,min=1,max=30"`
	Address        string                 `json:"address" validate:"max=255"`
	UserPreference *UserPreferenceRequest `json:"userPreference" validate:"required"`
}

// UpdateUserRequest тело PATCH /users/:id, все поля необязательны
type UpdateUserRequest struct {
	Email          *string                `json:"email" validate:"omitempty,email,max=255"`
	FirstName      *string                `json:"firstName" validate:"omitempty,max=30"`
	LastName       *string                `json:"lastName" validate:"omitempty,max=30"`
	Address        *string                `json:"address" validate:"omitempty,max=255"`
	UserPreference *UserPreferenceRequest `json:"userPreference" validate:"omitempty"`
}

// SaveProductRequest тело POST /users/:id/saved-products
type SaveProductRequest struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
}

// validateUserCreate запрещает имена из одних пробелов. Адрес может быть пустым.
func validateUserCreate(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateUserRequest)
	reportBlank(sl, &req.FirstName, "firstName", "FirstName")
	reportBlank(sl, &req.LastName, "lastName", "LastName")
}

// validateUserPatch применяет к переданным полям те же правила, что и создание
func validateUserPatch(sl validator.StructLevel) {
	req := sl.Current().Interface().(UpdateUserRequest)
	reportBlank(sl, req.Email, "email", "Email")
	reportBlank(sl, req.FirstName, "firstName", "FirstName")
	reportBlank(sl, req.LastName, "lastName", "LastName")
}

// CreateUserCommand создание пользователя с заранее выданным ID
type CreateUserCommand struct {
	UserID  string
	Request CreateUserRequest
}

func (CreateUserCommand) CommandName() string { return CreateUserCommandName }

// UpdateUserCommand частичное изменение пользователя
type UpdateUserCommand struct {
	UserID  string
	Request UpdateUserRequest
}

func (UpdateUserCommand) CommandName() string { return UpdateUserCommandName }

// DeleteUserCommand удаление пользователя
type DeleteUserCommand struct {
	UserID string
}

func (DeleteUserCommand) CommandName() string { return DeleteUserCommandName }

// SaveProductCommand добавление товара в сохраненные
type SaveProductCommand struct {
	UserID  string
	Request SaveProductRequest
}

func (SaveProductCommand) CommandName() string { return SaveProductCommandName }

// RemoveSavedProductCommand удаление товара из сохраненных
type RemoveSavedProductCommand struct {
	UserID    string
	ProductID string
}

func (RemoveSavedProductCommand) CommandName() string { return RemoveSavedProductCommandName }

// GetUserQuery пользователь по ID
type GetUserQuery struct {
	UserID string
}

func (GetUserQuery) QueryName() string { return GetUserQueryName }

// ListUsersQuery все пользователи
type ListUsersQuery struct{}

func (ListUsersQuery) QueryName() string { return ListUsersQueryName }

// ListSavedProductsQuery сохраненные товары пользователя
type ListSavedProductsQuery struct {
	UserID string
}

func (ListSavedProductsQuery) QueryName() string { return ListSavedProductsQueryName }

// CreateUser создает пользователя вместе с настройками
func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCommand) error {
	if cmd.UserID == "" {
		return domain.NewValidationError("id", "id is required")
	}
	if err := s.validator.Struct(cmd.Request); err != nil {
		return err
	}

	now := s.now().UTC()
	req := cmd.Request
	return s.store.Users().Create(ctx, &domain.User{
		ID:         cmd.UserID,
		Email:      strings.ToLower(req.Email),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Address:    req.Address,
		Preference: domain.UserPreference{ReceiveEmail: *req.UserPreference.ReceiveEmail},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// UpdateUser применяет переданные поля, настройки меняются вместе с пользователем или отдельно
func (s *Service) UpdateUser(ctx context.Context, cmd UpdateUserCommand) error {
	if err := checkID("user", cmd.UserID); err != nil {
		return err
	}
	if err := s.validator.Struct(cmd.Request); err != nil {
		return err
	}

	req := cmd.Request
	_, err := s.store.Users().Update(ctx, cmd.UserID, func(u *domain.User) error {
		if req.Email != nil {
			u.Email = strings.ToLower(*req.Email)
		}
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			u.LastName = *req.LastName
		}
		if req.Address != nil {
			u.Address = *req.Address
		}
		if req.UserPreference != nil {
			u.Preference.ReceiveEmail = *req.UserPreference.ReceiveEmail
		}
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	return err
}

// DeleteUser удаляет пользователя, его настройки и сохраненные товары
func (s *Service) DeleteUser(ctx context.Context, cmd DeleteUserCommand) error {
	if err := checkID("user", cmd.UserID); err != nil {
		return err
	}
	return s.store.Users().Delete(ctx, cmd.UserID)
}

// SaveProduct сохраняет товар для пользователя
func (s *Service) SaveProduct(ctx context.Context, cmd SaveProductCommand) error {
	if err := checkID("user", cmd.UserID); err != nil {
		return err
	}
	if err := s.validator.Struct(cmd.Request); err != nil {
		return err
	}
	if _, err := s.store.Users().Get(ctx, cmd.UserID); err != nil {
		return err
	}
	if _, err := s.store.Products().Get(ctx, cmd.Request.ProductID); err != nil {
		return err
	}

	return s.store.Users().SaveProduct(ctx, domain.SavedProduct{
		UserID:    cmd.UserID,
		ProductID: cmd.Request.ProductID,
		SavedAt:   s.now().UTC(),
	})
}

// RemoveSavedProduct удаляет товар из сохраненных
func (s *Service) RemoveSavedProduct(ctx context.Context, cmd RemoveSavedProductCommand) error {
	if err := checkID("user", cmd.UserID); err != nil {
		return err
	}
	if err := checkID("saved product", cmd.ProductID); err != nil {
		return err
	}
	return s.store.Users().RemoveSavedProduct(ctx, cmd.UserID, cmd.ProductID)
}

// GetUser возвращает пользователя
func (s *Service) GetUser(ctx context.Context, q GetUserQuery) (*domain.User, error) {
	if err := checkID("user", q.UserID); err != nil {
		return nil, err
	}
	return s.store.Users().Get(ctx, q.UserID)
}

// ListUsers возвращает всех пользователей
func (s *Service) ListUsers(ctx context.Context, _ ListUsersQuery) ([]*domain.User, error) {
	return s.store.Users().List(ctx)
}

// ListSavedProducts возвращает сохраненные товары пользователя
func (s *Service) ListSavedProducts(ctx context.Context, q ListSavedProductsQuery) ([]domain.SavedProduct, error) {
	if err := checkID("user", q.UserID); err != nil {
		return nil, err
	}
	if _, err := s.store.Users().Get(ctx, q.UserID); err != nil {
		return nil, err
	}
	return s.store.Users().ListSavedProducts(ctx, q.UserID)
}
