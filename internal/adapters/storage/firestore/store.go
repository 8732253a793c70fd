package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jeweledassist/backend/internal/domain"
)

// Store implements every persistence port on one Firestore client, mirroring
// the named partitions: sessions, customers, approvals, messages, settings.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	Step      string    `firestore:"step"`
	Mode      string    `firestore:"mode"`
	Metal     string    `firestore:"metal"`
	ItemType  string    `firestore:"item_type"`
	Grams     float64   `firestore:"grams"`
	Budget    string    `firestore:"budget"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type customerDoc struct {
	LastQuery   string     `firestore:"last_query"`
	LastContact time.Time  `firestore:"last_contact"`
	Intent      string     `firestore:"intent"`
	Metal       string     `firestore:"metal"`
	Grams       float64    `firestore:"grams"`
	Budget      string     `firestore:"budget"`
	QuotedPrice int64      `firestore:"quoted_price"`
	PriceSource string     `firestore:"price_source"`
	OwnerAction bool       `firestore:"requires_owner_action"`
	BotEnabled  bool       `firestore:"bot_enabled_for_chat"`
	HandoffAt   *time.Time `firestore:"handoff_at"`
	HandoffWhy  string     `firestore:"handoff_reason"`
	UpdatedAt   time.Time  `firestore:"updated_at"`
}

type approvalDoc struct {
	Customer      string    `firestore:"customer"`
	Type          string    `firestore:"type"`
	Metal         string    `firestore:"metal"`
	Grams         float64   `firestore:"grams"`
	Budget        string    `firestore:"budget"`
	EstimatedCost int64     `firestore:"estimated_cost"`
	Status        string    `firestore:"status"`
	FinalPrice    int64     `firestore:"final_price"`
	CreatedAt     time.Time `firestore:"created_at"`
	UpdatedAt     time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	From      string    `firestore:"from"`
	To        string    `firestore:"to"`
	Text      string    `firestore:"text"`
	Timestamp time.Time `firestore:"timestamp"`
}

type settingsDoc struct {
	StoreLocation     string    `firestore:"store_location"`
	MapLink           string    `firestore:"map_link"`
	OwnerNumber       string    `firestore:"owner_number"`
	WelcomeMediaURL   string    `firestore:"welcome_media_url"`
	ApprovalThreshold int64     `firestore:"approval_threshold"`
	ManualGold        float64   `firestore:"manual_gold"`
	ManualSilver      float64   `firestore:"manual_silver"`
	ManualPlatinum    float64   `firestore:"manual_platinum"`
	UpdatedAt         time.Time `firestore:"updated_at"`
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) sessionRef(id domain.CustomerID) *firestore.DocumentRef {
	return s.client.Collection("sessions").Doc(string(id))
}

func (s *Store) GetSession(ctx context.Context, id domain.CustomerID) (*domain.Session, error) {
	snap, err := s.sessionRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return &domain.Session{
		Customer: id,
		Step:     domain.Step(doc.Step),
		Mode:     domain.Mode(doc.Mode),
		BuyFlow: domain.BuyFlow{
			Metal:    domain.Metal(doc.Metal),
			ItemType: doc.ItemType,
			Grams:    doc.Grams,
			Budget:   doc.Budget,
		},
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		Step:      string(session.Step),
		Mode:      string(session.Mode),
		Metal:     string(session.BuyFlow.Metal),
		ItemType:  session.BuyFlow.ItemType,
		Grams:     session.BuyFlow.Grams,
		Budget:    session.BuyFlow.Budget,
		UpdatedAt: session.UpdatedAt,
	}

	if _, err := s.sessionRef(session.Customer).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SaveSession: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// CustomerStore implementation
// ─────────────────────────────────────────

func (s *Store) customerRef(id domain.CustomerID) *firestore.DocumentRef {
	return s.client.Collection("customers").Doc(string(id))
}

func (s *Store) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.CustomerRecord, error) {
	snap, err := s.customerRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore GetCustomer: %w", err)
	}

	var doc customerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetCustomer decode: %w", err)
	}
	return customerFromDoc(id, doc), nil
}

func (s *Store) UpsertCustomer(ctx context.Context, rec *domain.CustomerRecord) error {
	doc := customerDoc{
		LastQuery:   rec.LastQuery,
		LastContact: rec.LastContact,
		Intent:      rec.Intent,
		Metal:       string(rec.Metal),
		Grams:       rec.Grams,
		Budget:      rec.Budget,
		QuotedPrice: rec.QuotedPrice,
		PriceSource: string(rec.PriceSource),
		OwnerAction: rec.RequiresOwnerAction,
		BotEnabled:  rec.BotEnabled,
		HandoffAt:   rec.HandoffAt,
		HandoffWhy:  rec.HandoffReason,
		UpdatedAt:   rec.UpdatedAt,
	}

	if _, err := s.customerRef(rec.Customer).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore UpsertCustomer: %w", err)
	}
	return nil
}

func (s *Store) ListRecentCustomers(ctx context.Context, limit int) ([]*domain.CustomerRecord, error) {
	q := s.client.Collection("customers").OrderBy("last_contact", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.CustomerRecord
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListRecentCustomers: %w", err)
		}

		var doc customerDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode customerDoc: %w", err)
		}
		out = append(out, customerFromDoc(domain.CustomerID(snap.Ref.ID), doc))
	}
	return out, nil
}

func customerFromDoc(id domain.CustomerID, doc customerDoc) *domain.CustomerRecord {
	return &domain.CustomerRecord{
		Customer:            id,
		LastQuery:           doc.LastQuery,
		LastContact:         doc.LastContact,
		Intent:              doc.Intent,
		Metal:               domain.Metal(doc.Metal),
		Grams:               doc.Grams,
		Budget:              doc.Budget,
		QuotedPrice:         doc.QuotedPrice,
		PriceSource:         domain.RateOrigin(doc.PriceSource),
		RequiresOwnerAction: doc.OwnerAction,
		BotEnabled:          doc.BotEnabled,
		HandoffAt:           doc.HandoffAt,
		HandoffReason:       doc.HandoffWhy,
		UpdatedAt:           doc.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// ApprovalStore implementation
// ─────────────────────────────────────────

func (s *Store) approvalRef(id domain.RequestID) *firestore.DocumentRef {
	return s.client.Collection("approvals").Doc(string(id))
}

func (s *Store) CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error {
	doc := approvalDoc{
		Customer:      string(req.Customer),
		Type:          string(req.Type),
		Metal:         string(req.Metal),
		Grams:         req.Grams,
		Budget:        req.Budget,
		EstimatedCost: req.EstimatedCost,
		Status:        string(req.Status),
		FinalPrice:    req.FinalPrice,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}

	if _, err := s.approvalRef(req.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateApproval: %w", err)
	}
	return nil
}

func (s *Store) GetApproval(ctx context.Context, id domain.RequestID) (*domain.ApprovalRequest, error) {
	snap, err := s.approvalRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore GetApproval: %w", err)
	}

	var doc approvalDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetApproval decode: %w", err)
	}
	return approvalFromDoc(id, doc), nil
}

func (s *Store) SetApproved(ctx context.Context, id domain.RequestID, finalPrice int64, at domain.Timestamp) error {
	_, err := s.approvalRef(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(domain.StatusApproved)},
		{Path: "final_price", Value: finalPrice},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return fmt.Errorf("firestore SetApproved: %w", err)
	}
	return nil
}

func (s *Store) ListByStatus(ctx context.Context, st domain.ApprovalStatus, limit int) ([]*domain.ApprovalRequest, error) {
	q := s.client.Collection("approvals").
		Where("status", "==", string(st)).
		OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.ApprovalRequest
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListByStatus: %w", err)
		}

		var doc approvalDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode approvalDoc: %w", err)
		}
		out = append(out, approvalFromDoc(domain.RequestID(snap.Ref.ID), doc))
	}
	return out, nil
}

func approvalFromDoc(id domain.RequestID, doc approvalDoc) *domain.ApprovalRequest {
	return &domain.ApprovalRequest{
		ID:            id,
		Customer:      domain.CustomerID(doc.Customer),
		Type:          domain.ApprovalType(doc.Type),
		Metal:         domain.Metal(doc.Metal),
		Grams:         doc.Grams,
		Budget:        doc.Budget,
		EstimatedCost: doc.EstimatedCost,
		Status:        domain.ApprovalStatus(doc.Status),
		FinalPrice:    doc.FinalPrice,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	doc := messageDoc{
		From:      msg.From,
		To:        msg.To,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}

	if _, _, err := s.client.Collection("messages").Add(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

// HistoryFor fetches both directions separately and merges in RAM, which
// avoids a composite index on (from,to,timestamp).
func (s *Store) HistoryFor(ctx context.Context, id domain.CustomerID, limit int) ([]*domain.Message, error) {
	fetch := func(field string) ([]*domain.Message, error) {
		q := s.client.Collection("messages").Where(field, "==", string(id)).Limit(200)
		iter := q.Documents(ctx)
		defer iter.Stop()

		var out []*domain.Message
		for {
			snap, err := iter.Next()
			if err != nil {
				if err == iterator.Done {
					break
				}
				return nil, fmt.Errorf("firestore HistoryFor: %w", err)
			}
			var doc messageDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, fmt.Errorf("decode messageDoc: %w", err)
			}
			out = append(out, &domain.Message{
				From: doc.From, To: doc.To, Text: doc.Text, Timestamp: doc.Timestamp,
			})
		}
		return out, nil
	}

	from, err := fetch("from")
	if err != nil {
		return nil, err
	}
	to, err := fetch("to")
	if err != nil {
		return nil, err
	}

	all := append(from, to...)
	sortMessages(all)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func sortMessages(msgs []*domain.Message) {
	for i := 1; i < len(msgs); i++ {
		for j := i; j > 0 && msgs[j].Timestamp.Before(msgs[j-1].Timestamp); j-- {
			msgs[j], msgs[j-1] = msgs[j-1], msgs[j]
		}
	}
}

// ─────────────────────────────────────────
// SettingsStore implementation
// ─────────────────────────────────────────

func (s *Store) settingsRef() *firestore.DocumentRef {
	return s.client.Collection("settings").Doc("global")
}

func (s *Store) GetSettings(ctx context.Context) (*domain.StoreSettings, error) {
	snap, err := s.settingsRef().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &domain.StoreSettings{}, nil
		}
		return nil, fmt.Errorf("firestore GetSettings: %w", err)
	}

	var doc settingsDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSettings decode: %w", err)
	}

	return &domain.StoreSettings{
		StoreLocation:     doc.StoreLocation,
		MapLink:           doc.MapLink,
		OwnerNumber:       doc.OwnerNumber,
		WelcomeMediaURL:   doc.WelcomeMediaURL,
		ApprovalThreshold: doc.ApprovalThreshold,
		ManualRates: domain.ManualRates{
			Gold:     doc.ManualGold,
			Silver:   doc.ManualSilver,
			Platinum: doc.ManualPlatinum,
		},
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Store) UpdateSettings(ctx context.Context, cfg *domain.StoreSettings) error {
	doc := settingsDoc{
		StoreLocation:     cfg.StoreLocation,
		MapLink:           cfg.MapLink,
		OwnerNumber:       cfg.OwnerNumber,
		WelcomeMediaURL:   cfg.WelcomeMediaURL,
		ApprovalThreshold: cfg.ApprovalThreshold,
		ManualGold:        cfg.ManualRates.Gold,
		ManualSilver:      cfg.ManualRates.Silver,
		ManualPlatinum:    cfg.ManualRates.Platinum,
		UpdatedAt:         cfg.UpdatedAt,
	}

	if _, err := s.settingsRef().Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore UpdateSettings: %w", err)
	}
	return nil
}
