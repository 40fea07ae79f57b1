package utils

import "github.com/google/uuid"

func NewID() string { return uuid.NewString() }

// IsID 校验路径参数是否为合法 uuid
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
