package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"gorm.io/gorm"

	"nexbid/internal/domain"
)

// dbErr 把驱动/ORM 错误归类成 domain 错误；已是 domain 错误的原样返回
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Msg: "record not found", Err: err}
	case isDupKey(err):
		return &domain.Error{Kind: domain.KindConflict, Msg: "duplicate record", Err: err}
	case isConnErr(err):
		return domain.Unavailable("database unavailable", err)
	case isBusy(err):
		return domain.Unavailable("database busy", err)
	}
	return err
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "duplicate entry") ||
		strings.Contains(s, "unique constraint")
}

// isBusy sqlite 等锁超时，可重试
func isBusy(err error) bool {
	s := err.Error()
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "database table is locked") ||
		strings.Contains(s, "SQLITE_BUSY")
}

func isConnErr(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// notFoundNil gorm.ErrRecordNotFound -> (nil, nil)
func notFoundNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return v, nil
}
