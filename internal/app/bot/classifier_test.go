package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeweledassist/backend/internal/domain"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hi", Normalize("  Hi  "))
	assert.Equal(t, "gold ring", Normalize("GOLD Ring"))
}

func TestIsGreeting(t *testing.T) {
	for _, in := range []string{"hi", "hello", "start", "menu", "reset"} {
		assert.True(t, IsGreeting(in), in)
	}
	assert.False(t, IsGreeting("hi there"))
	assert.False(t, IsGreeting("0"))
}

func TestDetectMetal(t *testing.T) {
	cases := []struct {
		in    string
		metal domain.Metal
		ok    bool
	}{
		{"a", domain.MetalGold, true},
		{"gold", domain.MetalGold, true},
		{"22k gold", domain.MetalGold, true},
		{"916", domain.MetalGold, true},
		{"b", domain.MetalSilver, true},
		{"silver chain", domain.MetalSilver, true},
		{"925", domain.MetalSilver, true},
		{"c", domain.MetalPlatinum, true},
		{"platinum", domain.MetalPlatinum, true},
		{"pt", domain.MetalPlatinum, true},
		{"copper", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		m, ok := DetectMetal(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.metal, m, tc.in)
	}
}

func TestDetectItem(t *testing.T) {
	assert.Equal(t, "Ring", DetectItem("1"))
	assert.Equal(t, "Ring", DetectItem("a gold ring"))
	assert.Equal(t, "Chain", DetectItem("chain"))
	assert.Equal(t, "Earrings", DetectItem("earrings"))
	assert.Equal(t, "Other", DetectItem("bracelet"))
	assert.Equal(t, "Other", DetectItem(""))
}

func TestParseGrams(t *testing.T) {
	cases := []struct {
		in    string
		grams float64
		ok    bool
	}{
		{"10", 10, true},
		{"10.5", 10.5, true},
		{"10g", 10, true},
		{"10 g", 10, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"ten", 0, false},
		{"", 0, false},
		// strconv parses these, a weight field must not.
		{"nan", 0, false},
		{"NaN", 0, false},
		{"+inf", 0, false},
		{"-inf", 0, false},
		{"infinity", 0, false},
	}
	for _, tc := range cases {
		v, ok := ParseGrams(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.grams, v, tc.in)
	}
}

func TestClassifyMenu(t *testing.T) {
	assert.Equal(t, ActChooseBuy, Classify(domain.StepMenu, "1").Kind)
	assert.Equal(t, ActChooseExchange, Classify(domain.StepMenu, "exchange").Kind)
	assert.Equal(t, ActRequestAgent, Classify(domain.StepMenu, "talk to sales").Kind)
	assert.Equal(t, ActAskLocation, Classify(domain.StepMenu, "store location").Kind)
	assert.Equal(t, ActUnknown, Classify(domain.StepMenu, "what?").Kind)

	// Metal keywords skip the buy prompt straight into the item step.
	got := Classify(domain.StepMenu, "gold")
	assert.Equal(t, ActMetal, got.Kind)
	assert.Equal(t, domain.MetalGold, got.Metal)
}

func TestClassifyBuyFlow(t *testing.T) {
	got := Classify(domain.StepBuyMetal, "b")
	assert.Equal(t, ActMetal, got.Kind)
	assert.Equal(t, domain.MetalSilver, got.Metal)
	assert.Equal(t, ActUnknown, Classify(domain.StepBuyMetal, "maybe").Kind)

	got = Classify(domain.StepBuyItem, "necklace")
	assert.Equal(t, ActItem, got.Kind)
	assert.Equal(t, "Necklace", got.Item)

	got = Classify(domain.StepBuyGrams, "12.5g")
	assert.Equal(t, ActGrams, got.Kind)
	assert.Equal(t, 12.5, got.Grams)
	assert.Equal(t, ActUnknown, Classify(domain.StepBuyGrams, "dunno").Kind)

	assert.Equal(t, ActText, Classify(domain.StepBuyBudget, "around 50k").Kind)
	assert.Equal(t, ActText, Classify(domain.StepExchangeGrams, "8g").Kind)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "9876543210", normalizePhone("whatsapp:+91 98765-43210"))
	assert.Equal(t, "9876543210", normalizePhone("919876543210"))
	assert.True(t, isOwnerNumber("whatsapp:+919876543210", "9876543210"))
	assert.False(t, isOwnerNumber("9876543210", ""))
	assert.False(t, isOwnerNumber("9876543211", "9876543210"))
}
