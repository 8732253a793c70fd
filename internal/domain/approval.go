package domain

// ApprovalRequest is a quote awaiting operator sign-off. Status moves
// pending_approval -> approved and nowhere else; FinalPrice is set only on
// approval.
type ApprovalRequest struct {
	ID       RequestID
	Customer CustomerID
	Type     ApprovalType

	Metal         Metal
	Grams         float64
	Budget        string
	EstimatedCost int64

	Status     ApprovalStatus
	FinalPrice int64

	CreatedAt Timestamp
	UpdatedAt Timestamp
}
