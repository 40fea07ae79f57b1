package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword cost 非法时退回 bcrypt.DefaultCost
func HashPassword(pw string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw))
	return err == nil
}

// IsTooLong bcrypt 只接受 72 字节以内
func IsTooLong(err error) bool { return errors.Is(err, bcrypt.ErrPasswordTooLong) }
