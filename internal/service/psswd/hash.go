package psswd

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher bcrypt хеширование паролей. Нулевое значение использует bcrypt.DefaultCost, в тестах cost
// понижают до bcrypt.MinCost.
type Hasher struct {
	Cost int
}

func (h Hasher) HashPassword(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %s", err.Error())
	}
	return string(bytes), nil
}

func (h Hasher) ComparePassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
