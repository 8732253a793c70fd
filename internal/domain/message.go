package domain

// Message is one entry in the append-only activity ledger. From/To carry
// customer ids or the reserved peers below; entries are never mutated.
type Message struct {
	From      string
	To        string
	Text      string
	Timestamp Timestamp
}

// Reserved ledger peers.
const (
	PeerBot   = "bot"
	PeerOwner = "owner"
	PeerAdmin = "admin"
)
