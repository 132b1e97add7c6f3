package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

type jsonItem struct {
	MenuItemID int64           `json:"menu_item_id"`
	Quantity   int32           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type jsonSnapshot struct {
	RestaurantID int64      `json:"restaurant_id"`
	Items        []jsonItem `json:"items"`
}

type jsonFormat struct{}

func (jsonFormat) encode(s domain.Snapshot) ([]byte, error) {
	doc := jsonSnapshot{
		RestaurantID: s.RestaurantID,
		Items:        make([]jsonItem, 0, len(s.Items)),
	}
	for _, item := range s.Items {
		doc.Items = append(doc.Items, jsonItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}
	return json.Marshal(doc)
}

func (jsonFormat) decode(payload []byte) (domain.Snapshot, error) {
	var doc jsonSnapshot
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s := domain.Snapshot{
		RestaurantID: doc.RestaurantID,
		Items:        make([]domain.SnapshotItem, 0, len(doc.Items)),
	}
	for _, item := range doc.Items {
		s.Items = append(s.Items, domain.SnapshotItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}
	return s, nil
}
