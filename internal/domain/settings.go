package domain

// ManualRates are operator-configured per-gram overrides. A zero value means
// "no override" for that metal.
type ManualRates struct {
	Gold     float64
	Silver   float64
	Platinum float64
}

// StoreSettings is the runtime-editable store configuration. Defaults are
// seeded from the environment on first run.
type StoreSettings struct {
	StoreLocation     string
	MapLink           string
	OwnerNumber       string
	WelcomeMediaURL   string
	ApprovalThreshold int64
	ManualRates       ManualRates

	UpdatedAt Timestamp
}
