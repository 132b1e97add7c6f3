package snapshot

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// Номера полей wire-формата. Менять нельзя: ими записаны исторические заказы.
const (
	fieldRestaurantID protowire.Number = 1
	fieldItem         protowire.Number = 2

	fieldItemMenuItemID protowire.Number = 1
	fieldItemQuantity   protowire.Number = 2
	fieldItemUnitPrice  protowire.Number = 3
)

type wireFormat struct{}

func (wireFormat) encode(s domain.Snapshot) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldRestaurantID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.RestaurantID))

	for _, item := range s.Items {
		var ib []byte
		ib = protowire.AppendTag(ib, fieldItemMenuItemID, protowire.VarintType)
		ib = protowire.AppendVarint(ib, uint64(item.MenuItemID))
		ib = protowire.AppendTag(ib, fieldItemQuantity, protowire.VarintType)
		ib = protowire.AppendVarint(ib, uint64(item.Quantity))
		ib = protowire.AppendTag(ib, fieldItemUnitPrice, protowire.BytesType)
		ib = protowire.AppendString(ib, item.UnitPrice.String())

		b = protowire.AppendTag(b, fieldItem, protowire.BytesType)
		b = protowire.AppendBytes(b, ib)
	}

	return b, nil
}

func (wireFormat) decode(payload []byte) (domain.Snapshot, error) {
	var s domain.Snapshot

	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return domain.Snapshot{}, corruptWire(n)
		}
		payload = payload[n:]

		switch {
		case num == fieldRestaurantID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(payload)
			if m < 0 {
				return domain.Snapshot{}, corruptWire(m)
			}
			if v > math.MaxInt64 {
				return domain.Snapshot{}, fmt.Errorf("%w: restaurant_id overflow", ErrCorrupt)
			}
			s.RestaurantID = int64(v)
			n = m
		case num == fieldItem && typ == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(payload)
			if m < 0 {
				return domain.Snapshot{}, corruptWire(m)
			}
			item, err := decodeWireItem(raw)
			if err != nil {
				return domain.Snapshot{}, err
			}
			s.Items = append(s.Items, item)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, payload)
			if n < 0 {
				return domain.Snapshot{}, corruptWire(n)
			}
		}
		payload = payload[n:]
	}

	return s, nil
}

func decodeWireItem(b []byte) (domain.SnapshotItem, error) {
	var item domain.SnapshotItem
	var hasPrice bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.SnapshotItem{}, corruptWire(n)
		}
		b = b[n:]

		switch {
		case num == fieldItemMenuItemID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return domain.SnapshotItem{}, corruptWire(m)
			}
			if v > math.MaxInt64 {
				return domain.SnapshotItem{}, fmt.Errorf("%w: menu_item_id overflow", ErrCorrupt)
			}
			item.MenuItemID = int64(v)
			n = m
		case num == fieldItemQuantity && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return domain.SnapshotItem{}, corruptWire(m)
			}
			if v > math.MaxInt32 {
				return domain.SnapshotItem{}, fmt.Errorf("%w: quantity overflow", ErrCorrupt)
			}
			item.Quantity = int32(v)
			n = m
		case num == fieldItemUnitPrice && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return domain.SnapshotItem{}, corruptWire(m)
			}
			price, err := decimal.NewFromString(v)
			if err != nil {
				return domain.SnapshotItem{}, fmt.Errorf("%w: unit_price: %v", ErrCorrupt, err)
			}
			item.UnitPrice = price
			hasPrice = true
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.SnapshotItem{}, corruptWire(n)
			}
		}
		b = b[n:]
	}

	if !hasPrice {
		return domain.SnapshotItem{}, fmt.Errorf("%w: item without unit_price", ErrCorrupt)
	}
	return item, nil
}

func corruptWire(n int) error {
	return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
}
