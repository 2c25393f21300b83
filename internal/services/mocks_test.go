package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/middleware"
	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository/memory"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Register(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newLedger opens the given accounts in an in-memory store.
func newLedger(balances map[int64]string) (*memory.Store, *ledger.Engine) {
	store := memory.NewStore()
	for id, balance := range balances {
		store.OpenAccount(id, dec(balance))
	}
	return store, ledger.NewEngine(store)
}

func balanceOf(t *testing.T, store *memory.Store, id int64) decimal.Decimal {
	t.Helper()
	acc, ok := store.Account(id)
	require.True(t, ok, "account %d should exist", id)
	return acc.Balance
}

// asUser marks the request as authenticated for userID.
func asUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}
