package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

const orderColumns = `id, user_id, restaurant_id, delivery_address_id, status, total_price, order_time, cart_snapshot, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func scanOrder(row rowScanner) (domain.OrderRecord, error) {
	var (
		order  domain.OrderRecord
		status string
	)
	if err := row.Scan(
		&order.ID, &order.UserID, &order.RestaurantID, &order.DeliveryAddressID,
		&status, &order.TotalPrice, &order.OrderTime, &order.CartSnapshot, &order.UpdatedAt,
	); err != nil {
		return domain.OrderRecord{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) Create(ctx context.Context, order domain.OrderRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.OrderTime
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		order.ID, order.UserID, order.RestaurantID, order.DeliveryAddressID,
		string(order.Status), order.TotalPrice, order.OrderTime, order.CartSnapshot, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderRecord{}, domain.ErrOrderNotFound
		}
		return domain.OrderRecord{}, fmt.Errorf("select order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.OrderRecord, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY order_time DESC, id DESC
	`, userID)
}

func (r *orderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]domain.OrderRecord, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1
		ORDER BY order_time DESC, id DESC
	`, restaurantID)
}

// UpdateStatus выполняет compare-and-set по статусу одним UPDATE.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		id, string(from), string(to), time.Now().UTC(),
	))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.OrderRecord{}, fmt.Errorf("update order status: %w", err)
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("check order status: %w", err)
	}
	return domain.OrderRecord{}, fmt.Errorf("%w: current status %s, expected %s", domain.ErrOrderUpdate, current, from)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderRecord, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
