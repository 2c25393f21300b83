package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) Register(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := r.now()
	addr := user.Address
	err = tx.QueryRowContext(ctx, `
		INSERT INTO addresses (street, number, neighborhood, city, state, zipcode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`,
		addr.Street, addr.Number, addr.Neighborhood, addr.City, addr.State, addr.Zipcode, now).Scan(&addr.ID)
	if err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (name, email, cpf_cnpj, password, address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		user.Name, strings.ToLower(user.Email), user.CPFCNPJ, user.Password, addr.ID, now).Scan(&user.ID)
	if err != nil {
		return translateError(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, version, updated_at)
		VALUES ($1, 0, 1, $2)`, user.ID, now)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	user.Email = strings.ToLower(user.Email)
	user.AddressID = addr.ID
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

const selectUser = `
		SELECT u.id, u.name, u.email, u.cpf_cnpj, u.password, u.created_at, u.updated_at,
		       a.id, a.street, a.number, a.neighborhood, a.city, a.state, a.zipcode
		FROM users u
		JOIN addresses a ON a.id = u.address_id`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, selectUser+`
		WHERE u.email = $1`, strings.ToLower(email))
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, selectUser+`
		WHERE u.id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user models.User
		addr models.Address
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.CPFCNPJ, &user.Password, &user.CreatedAt, &user.UpdatedAt,
		&addr.ID, &addr.Street, &addr.Number, &addr.Neighborhood, &addr.City, &addr.State, &addr.Zipcode)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.AddressID = addr.ID
	user.Address = &addr
	return &user, nil
}

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicateUser
	}
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
