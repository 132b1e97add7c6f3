package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine — одна позиция корзины пользователя в конкретном ресторане.
type CartLine struct {
	ID           string
	UserID       int64
	RestaurantID int64
	MenuItemID   int64
	Quantity     int32
	// UnitPrice — цена за единицу на момент добавления в корзину.
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет поля новой позиции перед записью в корзину.
func (l *CartLine) Validate() []error {
	var errs []error

	if l.UserID <= 0 {
		errs = append(errs, ErrUserIDRequired)
	}
	if l.RestaurantID <= 0 {
		errs = append(errs, ErrRestaurantIDRequired)
	}
	if l.MenuItemID <= 0 || l.Quantity <= 0 || !l.UnitPrice.IsPositive() {
		errs = append(errs, ErrInvalidInput)
	}

	return errs
}

// LineTotal возвращает quantity × unitPrice.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// SameRestaurant проверяет, что все позиции относятся к restaurantID.
func SameRestaurant(lines []CartLine, restaurantID int64) bool {
	for _, line := range lines {
		if line.RestaurantID != restaurantID {
			return false
		}
	}
	return true
}
