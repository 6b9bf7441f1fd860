package repositories

import "context"

// TxFn runs with the transaction carried in ctx; see GetExecutor.
type TxFn func(ctx context.Context) error

// TransactionManager commits a group of metadata writes as one unit.
// The folder cascades use it so a rename or delete lands all record
// changes or none of them.
type TransactionManager interface {
	// ExecTx commits when fn returns nil and rolls back otherwise
	ExecTx(ctx context.Context, fn TxFn) error
}
