package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/walletapi/backend/internal/models"
	"github.com/walletapi/backend/internal/repository"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Register(ctx context.Context, user *models.User) error {
	row := userRow{
		Name:     user.Name,
		Email:    strings.ToLower(user.Email),
		CPFCNPJ:  user.CPFCNPJ,
		Password: user.Password,
		Address: addressRow{
			Street:       user.Address.Street,
			Number:       user.Address.Number,
			Neighborhood: user.Address.Neighborhood,
			City:         user.Address.City,
			State:        user.Address.State,
			Zipcode:      user.Address.Zipcode,
		},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Create(&accountRow{ID: row.ID, Version: 1}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicateUser
	}
	if err != nil {
		return err
	}

	created := row.toModel()
	*user = *created
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(email))
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var row userRow
	err := r.db.WithContext(ctx).Preload("Address").Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
