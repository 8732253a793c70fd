package domain

import "context"

// SessionStore defines session persistence. GetSession returns (nil, nil)
// for an unseen customer; SaveSession upserts.
type SessionStore interface {
	GetSession(ctx context.Context, id CustomerID) (*Session, error)
	SaveSession(ctx context.Context, session *Session) error
}

// CustomerStore defines inbox-record persistence.
type CustomerStore interface {
	GetCustomer(ctx context.Context, id CustomerID) (*CustomerRecord, error)
	UpsertCustomer(ctx context.Context, rec *CustomerRecord) error
	ListRecentCustomers(ctx context.Context, limit int) ([]*CustomerRecord, error)
}

// ApprovalStore defines approval-request persistence.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, req *ApprovalRequest) error
	GetApproval(ctx context.Context, id RequestID) (*ApprovalRequest, error)
	SetApproved(ctx context.Context, id RequestID, finalPrice int64, at Timestamp) error
	ListByStatus(ctx context.Context, status ApprovalStatus, limit int) ([]*ApprovalRequest, error)
}

// MessageStore defines the activity ledger.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	HistoryFor(ctx context.Context, id CustomerID, limit int) ([]*Message, error)
}

// SettingsStore defines store-configuration persistence. GetSettings never
// returns a nil record on success.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*StoreSettings, error)
	UpdateSettings(ctx context.Context, s *StoreSettings) error
}

// Sender delivers an outbound text over the messaging channel. mediaURL may
// be empty.
type Sender interface {
	Send(ctx context.Context, to, text, mediaURL string) error
}
