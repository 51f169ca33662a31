package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// 引擎错误类别。调用方用 errors.Is 判断，具体ID在包装消息里
var (
	ErrSelfReference     = errors.New("component cannot reference itself")
	ErrCycleDetected     = errors.New("component cycle detected")
	ErrDuplicateEdge     = errors.New("component edge already exists")
	ErrEdgeNotFound      = errors.New("component edge not found")
	ErrItemReferenced    = errors.New("item is still referenced")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrItemNotFound      = errors.New("item not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrProjectLocked     = errors.New("project is locked")
	ErrAlreadyLocked     = errors.New("project is already locked")
	ErrTransientConflict = errors.New("transient storage conflict")
	ErrTimeout           = errors.New("operation timed out")
)

// PostgreSQL SQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translateDBError 把存储层错误归类为引擎错误。
// 序列化失败/死锁属于瞬态冲突，由调用方决定是否重试；引擎自身从不重试
func translateDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %v", ErrTransientConflict, err)
		}
	}
	return err
}

// isUniqueViolation 判断是否唯一约束冲突
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
