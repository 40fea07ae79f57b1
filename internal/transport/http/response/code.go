package response

import (
	"net/http"

	"nexbid/internal/domain"
)

// kindStatus 业务错误分类 -> HTTP 状态码（集中管理）
var kindStatus = map[domain.Kind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindInvalidState: http.StatusBadRequest,
	domain.KindConflict:     http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindUnavailable:  http.StatusServiceUnavailable,
	domain.KindInternal:     http.StatusInternalServerError,
}

// StatusOf 未知分类按 500 处理
func StatusOf(k domain.Kind) int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

const MsgInternal = "Internal server error"
