package contracts

import "context"

// TxManager runs fn inside one atomic store transaction. fn returning an error
// rolls everything back; the transaction boundary is the unit of serialization
// for all Frame/Client/NamingJob mutations.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
