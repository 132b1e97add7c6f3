package domain

import "errors"

// Базовые виды ошибок. Конкретные ошибки ниже разворачиваются (Unwrap) в один из них,
// поэтому вызывающий код может проверять как конкретную ошибку, так и её вид.
var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrAuthorization          = errors.New("authorization error")
	ErrExternalUnavailable    = errors.New("external service unavailable")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrPersistence            = errors.New("persistence error")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
)

// kindError — ошибка с человекочитаемым сообщением и базовым видом.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// ErrInvalidInput — некорректное количество или цена позиции корзины.
	ErrInvalidInput = newKindError(ErrValidation, "invalid input: quantity and price must be positive")
	// ErrEmptyCart — корзина пуста, оформлять нечего.
	ErrEmptyCart = newKindError(ErrValidation, "cart is empty")
	// ErrDifferentRestaurant — в корзине уже лежат позиции другого ресторана.
	ErrDifferentRestaurant = newKindError(ErrValidation, "cart already contains items from a different restaurant")
	// ErrUserIDRequired — не передан идентификатор пользователя.
	ErrUserIDRequired = newKindError(ErrValidation, "user_id is required")
	// ErrRestaurantIDRequired — не передан идентификатор ресторана.
	ErrRestaurantIDRequired = newKindError(ErrValidation, "restaurant_id is required")
	// ErrTotalMismatch — сумма заказа не совпадает с суммой позиций снимка.
	ErrTotalMismatch = newKindError(ErrValidation, "order total does not match snapshot items sum")
	// ErrRestaurantClosed — ресторан сейчас не принимает заказы.
	ErrRestaurantClosed = newKindError(ErrValidation, "restaurant is not accepting orders")

	ErrCartLineNotFound   = newKindError(ErrNotFound, "cart line not found")
	ErrOrderNotFound      = newKindError(ErrNotFound, "order not found")
	ErrRestaurantNotFound = newKindError(ErrNotFound, "restaurant not found")
	ErrUserNotFound       = newKindError(ErrNotFound, "user not found")
	ErrAddressNotFound    = newKindError(ErrNotFound, "delivery address not found")
	// ErrCompensationNotFound — запись о невыполненной компенсации отсутствует.
	ErrCompensationNotFound = newKindError(ErrNotFound, "compensation record not found")

	// ErrAddressNotOwned — адрес доставки принадлежит другому пользователю.
	ErrAddressNotOwned = newKindError(ErrAuthorization, "delivery address does not belong to user")

	// ErrOrderPersistence — заказ не удалось сохранить; списание к этому моменту компенсировано.
	ErrOrderPersistence = newKindError(ErrPersistence, "failed to persist order")
	// ErrOrderAlreadyExists — заказ с таким идентификатором уже сохранён.
	ErrOrderAlreadyExists = newKindError(ErrPersistence, "order already exists")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = newKindError(ErrPersistence, "outbox publish failed")

	// ErrOrderUpdate — переход статуса заказа запрещён текущим статусом.
	ErrOrderUpdate = newKindError(ErrInvalidStateTransition, "order status does not allow this transition")
)

// KindOf возвращает базовый вид ошибки или nil, если ошибка не относится ни к одному виду.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrNotFound,
		ErrAuthorization,
		ErrExternalUnavailable,
		ErrInsufficientFunds,
		ErrPersistence,
		ErrInvalidStateTransition,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsNotFound проверяет, что ошибка означает отсутствие сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
