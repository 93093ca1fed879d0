package domain

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxReceipt is the result of a submitted mint/book/update call. A Pending
// status with a non-empty Digest means the transaction was accepted but its
// confirmation could not be observed; callers may poll by digest.
type TxReceipt struct {
	Digest   string   `json:"digest"`
	ObjectID string   `json:"object_id,omitempty"`
	Status   TxStatus `json:"status"`
}

// MoveCall is one contract invocation. Args are positional and their order is
// part of the wire contract fixed by the deployed package.
type MoveCall struct {
	Sender   string
	Module   string
	Function string
	Args     []any
}

// TxEffects is the finalized outcome of a transaction.
type TxEffects struct {
	Status  TxStatus
	Created []string // object ids created by the transaction
	Mutated []string
}
