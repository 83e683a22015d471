package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category категория товара
type Category string

const (
	CategoryFashion           Category = "FASHION"
	CategoryBeauty            Category = "BEAUTY"
	CategorySports            Category = "SPORTS"
	CategoryElectronics       Category = "ELECTRONICS"
	CategoryHomeInterior      Category = "HOME_INTERIOR"
	CategoryKitchenware       Category = "KITCHENWARE"
	CategoryHouseholdSupplies Category = "HOUSEHOLD_SUPPLIES"
)

// Categories все допустимые категории
var Categories = []Category{
	CategoryFashion,
	CategoryBeauty,
	CategorySports,
	CategoryElectronics,
	CategoryHomeInterior,
	CategoryKitchenware,
	CategoryHouseholdSupplies,
}

// ParseCategory проверяет, что значение входит в закрытый набор категорий
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Product товар каталога. Stock никогда не бывает отрицательным.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductFilter фильтр списка товаров
type ProductFilter struct {
	Category Category
}

// Matches проверяет товар на соответствие фильтру
func (f ProductFilter) Matches(p Product) bool {
	return f.Category == "" || p.Category == f.Category
}
