package bot

import (
	"math"
	"strconv"
	"strings"

	"github.com/jeweledassist/backend/internal/domain"
)

// ActionKind is the transition selected by the classifier for one turn.
type ActionKind int

const (
	ActUnknown ActionKind = iota
	ActChooseBuy
	ActChooseExchange
	ActRequestAgent
	ActAskLocation
	ActMetal
	ActItem
	ActGrams
	ActText
)

// Action is the classified meaning of a normalized input at a given step.
type Action struct {
	Kind  ActionKind
	Metal domain.Metal
	Item  string
	Grams float64
	Text  string
}

// greetings reset the conversation to the main menu from anywhere.
var greetings = map[string]bool{
	"hi": true, "hello": true, "start": true, "menu": true, "reset": true,
}

// Normalize folds an inbound text for keyword matching.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsGreeting reports whether the normalized input is a greeting keyword.
func IsGreeting(input string) bool {
	return greetings[input]
}

// DetectMetal maps letters and trade keywords to a metal.
func DetectMetal(input string) (domain.Metal, bool) {
	switch {
	case input == "a" || strings.Contains(input, "gold") ||
		strings.Contains(input, "22k") || strings.Contains(input, "916"):
		return domain.MetalGold, true
	case input == "b" || strings.Contains(input, "silver") ||
		strings.Contains(input, "925"):
		return domain.MetalSilver, true
	case input == "c" || strings.Contains(input, "platinum") ||
		strings.Contains(input, "pt"):
		return domain.MetalPlatinum, true
	}
	return "", false
}

// Item taxonomy for the buy flow. Anything unmatched lands on Other.
var items = []struct {
	number  string
	keyword string
	label   string
}{
	{"1", "ring", "Ring"},
	{"2", "chain", "Chain"},
	{"3", "necklace", "Necklace"},
	{"4", "bangle", "Bangle"},
	{"5", "earring", "Earrings"},
	{"6", "other", "Other"},
}

// DetectItem maps input to the fixed item taxonomy, defaulting to Other.
func DetectItem(input string) string {
	for _, it := range items {
		if input == it.number || strings.Contains(input, it.keyword) {
			return it.label
		}
	}
	return "Other"
}

// ParseGrams accepts "10", "10.5", "10g" or "10 g"; anything non-positive
// or non-finite fails. strconv parses "nan" and "inf", neither of which is
// a weight.
func ParseGrams(input string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(input), "g"))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// Classify maps normalized input + current step to a transition. Keeping
// this a pure function keeps keyword tweaks out of the control flow.
func Classify(step domain.Step, input string) Action {
	switch step {
	case domain.StepMenu:
		// Direct metal keywords short-circuit into the buy flow.
		if m, ok := DetectMetal(input); ok {
			return Action{Kind: ActMetal, Metal: m}
		}
		switch {
		case strings.Contains(input, "1") || strings.Contains(input, "buy"):
			return Action{Kind: ActChooseBuy}
		case strings.Contains(input, "2") || strings.Contains(input, "exchange"):
			return Action{Kind: ActChooseExchange}
		case strings.Contains(input, "3") || strings.Contains(input, "sales") || strings.Contains(input, "talk"):
			return Action{Kind: ActRequestAgent}
		case strings.Contains(input, "4") || strings.Contains(input, "location"):
			return Action{Kind: ActAskLocation}
		}
		return Action{Kind: ActUnknown}

	case domain.StepBuyMetal, domain.StepExchangeMetal:
		if m, ok := DetectMetal(input); ok {
			return Action{Kind: ActMetal, Metal: m}
		}
		return Action{Kind: ActUnknown}

	case domain.StepBuyItem:
		return Action{Kind: ActItem, Item: DetectItem(input)}

	case domain.StepBuyGrams:
		if v, ok := ParseGrams(input); ok {
			return Action{Kind: ActGrams, Grams: v}
		}
		return Action{Kind: ActUnknown}

	case domain.StepBuyBudget, domain.StepExchangeGrams:
		return Action{Kind: ActText, Text: input}
	}

	return Action{Kind: ActUnknown}
}
