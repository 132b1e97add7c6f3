// Package pricing считает стоимость корзины в десятичной арифметике без побочных эффектов.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// LineTotal — стоимость одной позиции.
type LineTotal struct {
	MenuItemID int64
	Quantity   int32
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
}

// Quote — расчёт корзины: построчные суммы и итог.
type Quote struct {
	Lines []LineTotal
	Total decimal.Decimal
}

// Total возвращает Σ(quantity × unitPrice) или ErrEmptyCart для пустой корзины.
func Total(lines []domain.CartLine) (decimal.Decimal, error) {
	q, err := QuoteCart(lines)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Total, nil
}

// QuoteCart считает построчные суммы и итог в порядке позиций.
func QuoteCart(lines []domain.CartLine) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, domain.ErrEmptyCart
	}

	quote := Quote{
		Lines: make([]LineTotal, 0, len(lines)),
		Total: decimal.Zero,
	}
	for _, line := range lines {
		lineTotal := line.LineTotal()
		quote.Lines = append(quote.Lines, LineTotal{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Total:      lineTotal,
		})
		quote.Total = quote.Total.Add(lineTotal)
	}

	return quote, nil
}
