package domain

import "time"

type CustomerID string
type RequestID string

// Step is a position inside one of the fixed conversation flows.
type Step string

const (
	StepWelcome       Step = "welcome"
	StepMenu          Step = "menu"
	StepBuyMetal      Step = "buy_metal"
	StepBuyItem       Step = "buy_item"
	StepBuyGrams      Step = "buy_grams"
	StepBuyBudget     Step = "buy_budget"
	StepExchangeMetal Step = "exchange_metal"
	StepExchangeGrams Step = "exchange_grams"
)

// KnownStep reports whether s is a member of the fixed state set.
func KnownStep(s Step) bool {
	switch s {
	case StepWelcome, StepMenu, StepBuyMetal, StepBuyItem,
		StepBuyGrams, StepBuyBudget, StepExchangeMetal, StepExchangeGrams:
		return true
	}
	return false
}

// Mode says who is driving a conversation.
type Mode string

const (
	ModeBot   Mode = "bot"
	ModeAgent Mode = "agent"
)

type Metal string

const (
	MetalGold     Metal = "Gold"
	MetalSilver   Metal = "Silver"
	MetalPlatinum Metal = "Platinum"
)

type ApprovalStatus string

const (
	StatusPendingApproval ApprovalStatus = "pending_approval"
	StatusApproved        ApprovalStatus = "approved"
)

type ApprovalType string

const (
	TypeEstimate       ApprovalType = "estimate"
	TypeSupportRequest ApprovalType = "support_request"
)

// RateOrigin tags which path produced a rate snapshot.
type RateOrigin string

const (
	RateLive     RateOrigin = "live"
	RateManual   RateOrigin = "manual"
	RateFallback RateOrigin = "fallback"
)

type Timestamp = time.Time
