package saga

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// GuardedWallet пропускает списания через circuit breaker. Зачисления идут
// напрямую: это компенсации и возвраты, и открытый breaker не должен их пропускать.
type GuardedWallet struct {
	Next    domain.WalletClient
	Breaker *CircuitBreaker
}

func (g GuardedWallet) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return g.Breaker.Execute("wallet.debit", func() error { return g.Next.Debit(ctx, userID, amount) })
}

func (g GuardedWallet) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return g.Next.Credit(ctx, userID, amount)
}

// GuardedCatalog пропускает вызовы каталога через circuit breaker.
type GuardedCatalog struct {
	Next    domain.CatalogClient
	Breaker *CircuitBreaker
}

func (g GuardedCatalog) GetRestaurant(ctx context.Context, restaurantID int64) (domain.Restaurant, error) {
	var r domain.Restaurant
	err := g.Breaker.Execute("catalog.get_restaurant", func() error {
		var err error
		r, err = g.Next.GetRestaurant(ctx, restaurantID)
		return err
	})
	return r, err
}

// GuardedIdentity пропускает вызовы сервиса пользователей через circuit breaker.
type GuardedIdentity struct {
	Next    domain.IdentityClient
	Breaker *CircuitBreaker
}

func (g GuardedIdentity) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	var u domain.User
	err := g.Breaker.Execute("identity.get_user", func() error {
		var err error
		u, err = g.Next.GetUser(ctx, userID)
		return err
	})
	return u, err
}

func (g GuardedIdentity) GetAddress(ctx context.Context, addressID, userID int64) (domain.Address, error) {
	var a domain.Address
	err := g.Breaker.Execute("identity.get_address", func() error {
		var err error
		a, err = g.Next.GetAddress(ctx, addressID, userID)
		return err
	})
	return a, err
}

var (
	_ domain.WalletClient   = GuardedWallet{}
	_ domain.CatalogClient  = GuardedCatalog{}
	_ domain.IdentityClient = GuardedIdentity{}
)
