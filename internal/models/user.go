package models

import "time"

type User struct {
	ID        int64     `json:"id" example:"1"`                          // User ID
	Name      string    `json:"name" example:"Maria Silva"`              // Full name
	Email     string    `json:"email" example:"maria@example.com"`       // User email
	CPFCNPJ   string    `json:"cpf_cnpj" example:"12345678901"`          // Tax identifier
	Password  string    `json:"-"`                                       // argon2id hash
	AddressID int64     `json:"address_id" example:"1"`                  // Address ID
	Address   *Address  `json:"address,omitempty"`                       // Postal address
	CreatedAt time.Time `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

type Address struct {
	ID           int64  `json:"id" example:"1"`
	Street       string `json:"street" example:"Rua das Flores"`
	Number       string `json:"number" example:"100"`
	Neighborhood string `json:"neighborhood" example:"Centro"`
	City         string `json:"city" example:"São Paulo"`
	State        string `json:"state" example:"SP"`
	Zipcode      string `json:"zipcode" example:"01001000"`
}
