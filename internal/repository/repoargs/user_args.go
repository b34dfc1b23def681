package repoargs

import "github.com/shopspring/decimal"

type CreateUser struct {
	Name         string
	PasswordHash string
	Nationality  string
	Discount     decimal.Decimal
	Balance      decimal.Decimal
	Admin        bool
}
