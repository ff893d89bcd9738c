package enums

// TransactionType distinguishes charges from refunds on the payment ledger.
type TransactionType string

const (
	TransactionTypeCharge TransactionType = "charge"
	TransactionTypeRefund TransactionType = "refund"
)

func (t TransactionType) String() string { return string(t) }

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypeRefund:
		return true
	}
	return false
}
