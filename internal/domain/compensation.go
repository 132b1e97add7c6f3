package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompensationStatus — состояние записи о компенсации, которую не удалось выполнить сразу.
type CompensationStatus string

const (
	CompensationStatusPending  CompensationStatus = "pending"
	CompensationStatusResolved CompensationStatus = "resolved"
)

// CompensationRecord фиксирует долг перед пользователем: списание, которое не удалось вернуть.
type CompensationRecord struct {
	ID       string
	OrderID  string
	UserID   int64
	Amount   decimal.Decimal
	Reason   string
	Status   CompensationStatus
	Attempts int
	// LastError хранит текст последней ошибки возврата.
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
