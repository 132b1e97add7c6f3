package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

const cartLineColumns = `id, user_id, restaurant_id, menu_item_id, quantity, unit_price, created_at, updated_at`

type cartRepository struct {
	store *Store
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(row rowScanner) (domain.CartLine, error) {
	var line domain.CartLine
	err := row.Scan(
		&line.ID, &line.UserID, &line.RestaurantID, &line.MenuItemID,
		&line.Quantity, &line.UnitPrice, &line.CreatedAt, &line.UpdatedAt,
	)
	return line, err
}

// AddOrMerge берёт transaction-level advisory lock по пользователю, поэтому проверка
// "один ресторан" и вставка не гоняются с параллельными добавлениями того же пользователя.
func (r *cartRepository) AddOrMerge(ctx context.Context, line domain.CartLine) (domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	var stored domain.CartLine
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, line.UserID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		var foreign int64
		err := tx.QueryRowContext(ctx, `
			SELECT restaurant_id
			FROM cart_lines
			WHERE user_id = $1 AND restaurant_id <> $2
			LIMIT 1
		`, line.UserID, line.RestaurantID).Scan(&foreign)
		switch {
		case err == nil:
			return domain.ErrDifferentRestaurant
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check cart restaurant: %w", err)
		}

		stored, err = scanCartLine(tx.QueryRowContext(ctx, `
			INSERT INTO cart_lines (
				id, user_id, restaurant_id, menu_item_id, quantity, unit_price, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
			ON CONFLICT (user_id, restaurant_id, menu_item_id) DO UPDATE
			SET quantity = cart_lines.quantity + EXCLUDED.quantity,
			    unit_price = EXCLUDED.unit_price,
			    updated_at = EXCLUDED.updated_at
			WHERE cart_lines.quantity::bigint + EXCLUDED.quantity <= $8
			RETURNING `+cartLineColumns,
			line.ID, line.UserID, line.RestaurantID, line.MenuItemID, line.Quantity, line.UnitPrice, now,
			int64(math.MaxInt32),
		))
		if errors.Is(err, sql.ErrNoRows) {
			// конфликт есть, но сумма не влезает в int32: строка не обновлена
			return domain.ErrInvalidInput
		}
		if err != nil {
			return fmt.Errorf("upsert cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.CartLine{}, err
	}

	return stored, nil
}

func (r *cartRepository) Get(ctx context.Context, lineID string) (domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	line, err := scanCartLine(r.store.DB().QueryRowContext(ctx,
		`SELECT `+cartLineColumns+` FROM cart_lines WHERE id = $1`, lineID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartLine{}, domain.ErrCartLineNotFound
		}
		return domain.CartLine{}, fmt.Errorf("select cart line: %w", err)
	}
	return line, nil
}

func (r *cartRepository) AdjustQuantity(ctx context.Context, lineID string, delta int32) (domain.CartLine, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		line    domain.CartLine
		removed bool
	)
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanCartLine(tx.QueryRowContext(ctx,
			`SELECT `+cartLineColumns+` FROM cart_lines WHERE id = $1 FOR UPDATE`, lineID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrCartLineNotFound
			}
			return fmt.Errorf("select cart line: %w", err)
		}

		quantity := int64(current.Quantity) + int64(delta)
		if quantity <= 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID); err != nil {
				return fmt.Errorf("delete cart line: %w", err)
			}
			current.Quantity = 0
			line, removed = current, true
			return nil
		}
		if quantity > math.MaxInt32 {
			return domain.ErrInvalidInput
		}

		line, err = scanCartLine(tx.QueryRowContext(ctx, `
			UPDATE cart_lines
			SET quantity = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+cartLineColumns,
			lineID, int32(quantity), time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("update cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.CartLine{}, false, err
	}

	return line, removed, nil
}

func (r *cartRepository) Delete(ctx context.Context, lineID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.DB().ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for cart delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (r *cartRepository) ListByUser(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	return r.list(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY seq
	`, userID)
}

func (r *cartRepository) ListByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) ([]domain.CartLine, error) {
	return r.list(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_lines
		WHERE user_id = $1 AND restaurant_id = $2
		ORDER BY seq
	`, userID, restaurantID)
}

func (r *cartRepository) DeleteByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.store.DB().ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND restaurant_id = $2`, userID, restaurantID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) list(ctx context.Context, query string, args ...any) ([]domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
