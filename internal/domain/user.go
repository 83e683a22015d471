// Package domain содержит модель заказов, товаров и пользователей.
package domain

import "time"

// UserPreference настройки пользователя, существуют только вместе с пользователем
type UserPreference struct {
	ReceiveEmail bool `json:"receiveEmail"`
}

// User покупатель
type User struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	FirstName  string         `json:"firstName"`
	LastName   string         `json:"lastName"`
	Address    string         `json:"address"`
	Preference UserPreference `json:"userPreference"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// SavedProduct товар, сохраненный пользователем
type SavedProduct struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	SavedAt   time.Time `json:"savedAt"`
}
