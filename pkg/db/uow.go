package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TxRunner is satisfied by *Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UnitOfWork runs a transaction and re-runs it from scratch when a
// compare-and-set inside it reports ErrStaleWrite.
type UnitOfWork struct {
	tx     TxRunner
	policy RetryPolicy
}

func NewUnitOfWork(tx TxRunner, policy RetryPolicy) (*UnitOfWork, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &UnitOfWork{tx: tx, policy: policy}, nil
}

// Do executes fn in a fresh transaction per attempt. fn must not keep state
// between attempts.
func (u *UnitOfWork) Do(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	return Retry(ctx, u.policy, operation, func() error {
		return u.tx.WithTx(ctx, fn)
	})
}
