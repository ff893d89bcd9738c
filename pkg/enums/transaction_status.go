package enums

// TransactionStatus is the gateway outcome recorded on a payment
// transaction row.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (t TransactionStatus) String() string { return string(t) }

func (t TransactionStatus) IsValid() bool {
	switch t {
	case TransactionStatusPending, TransactionStatusSucceeded, TransactionStatusFailed:
		return true
	}
	return false
}
