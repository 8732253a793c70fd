package domain

// CustomerRecord is the inbox-facing snapshot of a customer: last activity,
// the latest detected intent with its flow metadata, and the handoff flags
// read by the state machine's gate.
type CustomerRecord struct {
	Customer    CustomerID
	LastQuery   string
	LastContact Timestamp

	Intent      string
	Metal       Metal
	Grams       float64
	Budget      string
	QuotedPrice int64
	PriceSource RateOrigin

	RequiresOwnerAction bool
	BotEnabled          bool
	HandoffAt           *Timestamp
	HandoffReason       string

	UpdatedAt Timestamp
}

// NewCustomerRecord returns a record for a first contact. The bot is enabled
// by default.
func NewCustomerRecord(customer CustomerID, now Timestamp) *CustomerRecord {
	return &CustomerRecord{
		Customer:   customer,
		BotEnabled: true,
		UpdatedAt:  now,
	}
}
