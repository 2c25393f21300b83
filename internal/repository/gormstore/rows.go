package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/walletapi/backend/internal/models"
	"gorm.io/gorm"
)

// accountRow maps the accounts table
type accountRow struct {
	ID        int64           `gorm:"primaryKey;autoIncrement:false"`
	Balance   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Version   int             `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

func (*accountRow) TableName() string {
	return "accounts"
}

func (r *accountRow) toModel() *models.Account {
	return &models.Account{ID: r.ID, Balance: r.Balance, Version: r.Version, UpdatedAt: r.UpdatedAt}
}

// transactionRow maps the transactions table
type transactionRow struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement"`
	PayerID               *int64          `gorm:"index"`
	PayeeID               int64           `gorm:"index;not null"`
	Amount                decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Type                  string          `gorm:"type:enum('deposit','transfer','reversal');not null"`
	Status                string          `gorm:"type:enum('pending','completed','reversed');not null;default:'pending'"`
	ReversedTransactionID *int64
	Metadata              models.Metadata `gorm:"type:json"`
	CreatedAt             time.Time       `gorm:"index"`
	UpdatedAt             time.Time
}

func (*transactionRow) TableName() string {
	return "transactions"
}

func newTransactionRow(t *models.Transaction) *transactionRow {
	return &transactionRow{
		ID:                    t.ID,
		PayerID:               t.PayerID,
		PayeeID:               t.PayeeID,
		Amount:                t.Amount,
		Type:                  string(t.Type),
		Status:                string(t.Status),
		ReversedTransactionID: t.ReversedTransactionID,
		Metadata:              t.Metadata,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

func (r *transactionRow) toModel() *models.Transaction {
	return &models.Transaction{
		ID:                    r.ID,
		PayerID:               r.PayerID,
		PayeeID:               r.PayeeID,
		Amount:                r.Amount,
		Type:                  models.TransactionType(r.Type),
		Status:                models.TransactionStatus(r.Status),
		ReversedTransactionID: r.ReversedTransactionID,
		Metadata:              r.Metadata,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

type addressRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Street       string `gorm:"size:255;not null"`
	Number       string `gorm:"size:20;not null"`
	Neighborhood string `gorm:"size:100;not null"`
	City         string `gorm:"size:100;not null"`
	State        string `gorm:"size:2;not null"`
	Zipcode      string `gorm:"size:8;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (*addressRow) TableName() string {
	return "addresses"
}

type userRow struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Name      string     `gorm:"size:255;not null"`
	Email     string     `gorm:"size:255;uniqueIndex;not null"`
	CPFCNPJ   string     `gorm:"column:cpf_cnpj;size:14;uniqueIndex;not null"`
	Password  string     `gorm:"size:255;not null"`
	AddressID int64      `gorm:"not null"`
	Address   addressRow `gorm:"foreignKey:AddressID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (*userRow) TableName() string {
	return "users"
}

func (r *userRow) toModel() *models.User {
	return &models.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		CPFCNPJ:   r.CPFCNPJ,
		Password:  r.Password,
		AddressID: r.AddressID,
		Address: &models.Address{
			ID:           r.Address.ID,
			Street:       r.Address.Street,
			Number:       r.Address.Number,
			Neighborhood: r.Address.Neighborhood,
			City:         r.Address.City,
			State:        r.Address.State,
			Zipcode:      r.Address.Zipcode,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&addressRow{}, &userRow{}, &accountRow{}, &transactionRow{})
}
