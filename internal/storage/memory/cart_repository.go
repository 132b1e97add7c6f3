package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

type cartEntry struct {
	line domain.CartLine
	seq  uint64
}

// cartRepositoryInMemory хранит корзины в памяти. Один мьютекс сериализует AddOrMerge,
// поэтому проверка "один ресторан на пользователя" и запись выполняются атомарно.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	lines map[string]*cartEntry
	seq   uint64
}

// NewCartRepository создаёт in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{lines: make(map[string]*cartEntry)}
}

// AddOrMerge добавляет позицию либо суммирует количество уже существующей.
// Цена за единицу берётся из последнего добавления.
func (r *cartRepositoryInMemory) AddOrMerge(ctx context.Context, line domain.CartLine) (domain.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartLine{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var existing *cartEntry
	for _, entry := range r.lines {
		if entry.line.UserID != line.UserID {
			continue
		}
		if entry.line.RestaurantID != line.RestaurantID {
			return domain.CartLine{}, domain.ErrDifferentRestaurant
		}
		if entry.line.MenuItemID == line.MenuItemID {
			existing = entry
		}
	}

	now := time.Now().UTC()
	if existing != nil {
		quantity := int64(existing.line.Quantity) + int64(line.Quantity)
		if quantity > math.MaxInt32 {
			return domain.CartLine{}, domain.ErrInvalidInput
		}
		existing.line.Quantity = int32(quantity)
		existing.line.UnitPrice = line.UnitPrice
		existing.line.UpdatedAt = now
		return existing.line, nil
	}

	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	line.CreatedAt = now
	line.UpdatedAt = now
	r.seq++
	r.lines[line.ID] = &cartEntry{line: line, seq: r.seq}
	return line, nil
}

// Get возвращает позицию или ErrCartLineNotFound.
func (r *cartRepositoryInMemory) Get(ctx context.Context, lineID string) (domain.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartLine{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.lines[lineID]
	if !ok {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	return entry.line, nil
}

// AdjustQuantity прибавляет delta; позиция с итоговым количеством <= 0 удаляется,
// количество больше MaxInt32 отклоняется с ErrInvalidInput.
func (r *cartRepositoryInMemory) AdjustQuantity(ctx context.Context, lineID string, delta int32) (domain.CartLine, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartLine{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lines[lineID]
	if !ok {
		return domain.CartLine{}, false, domain.ErrCartLineNotFound
	}

	quantity := int64(entry.line.Quantity) + int64(delta)
	if quantity <= 0 {
		delete(r.lines, lineID)
		line := entry.line
		line.Quantity = 0
		return line, true, nil
	}
	if quantity > math.MaxInt32 {
		return domain.CartLine{}, false, domain.ErrInvalidInput
	}

	entry.line.Quantity = int32(quantity)
	entry.line.UpdatedAt = time.Now().UTC()
	return entry.line, false, nil
}

// Delete удаляет позицию или возвращает ErrCartLineNotFound.
func (r *cartRepositoryInMemory) Delete(ctx context.Context, lineID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[lineID]; !ok {
		return domain.ErrCartLineNotFound
	}
	delete(r.lines, lineID)
	return nil
}

// ListByUser возвращает позиции пользователя в порядке добавления.
func (r *cartRepositoryInMemory) ListByUser(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	return r.list(ctx, func(l domain.CartLine) bool { return l.UserID == userID })
}

// ListByUserAndRestaurant возвращает позиции пользователя в ресторане в порядке добавления.
func (r *cartRepositoryInMemory) ListByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) ([]domain.CartLine, error) {
	return r.list(ctx, func(l domain.CartLine) bool {
		return l.UserID == userID && l.RestaurantID == restaurantID
	})
}

// DeleteByUserAndRestaurant очищает корзину; пустая корзина не считается ошибкой.
func (r *cartRepositoryInMemory) DeleteByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.lines {
		if entry.line.UserID == userID && entry.line.RestaurantID == restaurantID {
			delete(r.lines, id)
		}
	}
	return nil
}

func (r *cartRepositoryInMemory) list(ctx context.Context, match func(domain.CartLine) bool) ([]domain.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*cartEntry, 0)
	for _, entry := range r.lines {
		if match(entry.line) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	result := make([]domain.CartLine, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.line)
	}
	return result, nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
