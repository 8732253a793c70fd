package domain

// BuyFlow holds the fields collected incrementally during a purchase or
// exchange inquiry. It is cleared whenever the flow restarts.
type BuyFlow struct {
	Metal    Metal
	ItemType string
	Grams    float64
	Budget   string
}

// Session is the durable per-customer conversation state driving the state
// machine. It is created on the first inbound message from an unseen
// customer and never explicitly deleted (conversations are resumable).
type Session struct {
	Customer  CustomerID
	Step      Step
	Mode      Mode
	BuyFlow   BuyFlow
	UpdatedAt Timestamp
}

// NewSession returns the default session for a first-time customer.
func NewSession(customer CustomerID, now Timestamp) *Session {
	return &Session{
		Customer:  customer,
		Step:      StepWelcome,
		Mode:      ModeBot,
		UpdatedAt: now,
	}
}

// ResetFlow drops collected flow data and puts the session back on the menu.
func (s *Session) ResetFlow() {
	s.Step = StepMenu
	s.BuyFlow = BuyFlow{}
}
