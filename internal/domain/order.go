package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPlaced — заказ оформлен и оплачен из кошелька.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusCancelled — заказ отменён, средства возвращены.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusCompleted — заказ доставлен.
	OrderStatusCompleted OrderStatus = "completed"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusCancelled, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo описывает допустимые переходы: только из placed в cancelled или completed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPlaced && (next == OrderStatusCancelled || next == OrderStatusCompleted)
}

// SnapshotItem — позиция корзины, замороженная в заказе.
type SnapshotItem struct {
	MenuItemID int64
	Quantity   int32
	UnitPrice  decimal.Decimal
}

// Snapshot — декодированный снимок корзины на момент оформления.
type Snapshot struct {
	RestaurantID int64
	Items        []SnapshotItem
}

// SnapshotFromCart строит снимок из позиций корзины, сохраняя их порядок.
func SnapshotFromCart(restaurantID int64, lines []CartLine) Snapshot {
	items := make([]SnapshotItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, SnapshotItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
		})
	}
	return Snapshot{RestaurantID: restaurantID, Items: items}
}

// Total возвращает сумму quantity × unitPrice по снимку.
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return total
}

// OrderRecord — форма заказа на границе хранилища: снимок корзины хранится непрозрачным блобом.
type OrderRecord struct {
	ID                string
	UserID            int64
	RestaurantID      int64
	DeliveryAddressID int64
	Status            OrderStatus
	TotalPrice        decimal.Decimal
	OrderTime         time.Time
	CartSnapshot      []byte
	UpdatedAt         time.Time
}

// Order — заказ с декодированным снимком; только с ним работают workflow и API.
type Order struct {
	ID                string
	UserID            int64
	RestaurantID      int64
	DeliveryAddressID int64
	Status            OrderStatus
	TotalPrice        decimal.Decimal
	OrderTime         time.Time
	Items             []SnapshotItem
	// SnapshotDegraded выставляется, если снимок не удалось прочитать и Items пуст.
	SnapshotDegraded bool
	UpdatedAt        time.Time
}

// ValidateInvariants проверяет инварианты заказа перед сохранением и возвращает список замечаний.
func ValidateInvariants(record OrderRecord, snapshot Snapshot) []error {
	var errs []error

	if record.UserID <= 0 {
		errs = append(errs, ErrUserIDRequired)
	}
	if record.RestaurantID <= 0 || snapshot.RestaurantID != record.RestaurantID {
		errs = append(errs, ErrDifferentRestaurant)
	}
	if len(snapshot.Items) == 0 {
		errs = append(errs, ErrEmptyCart)
	}
	if len(record.CartSnapshot) == 0 {
		errs = append(errs, ErrEmptyCart)
	}

	for _, item := range snapshot.Items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			errs = append(errs, ErrInvalidInput)
			break
		}
	}
	// Сверяем сумму заказа с суммой позиций: qty * price.
	if !snapshot.Total().Equal(record.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
