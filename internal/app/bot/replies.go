package bot

import (
	"fmt"

	"github.com/jeweledassist/backend/internal/app/rates"
	"github.com/jeweledassist/backend/internal/domain"
)

const menuText = "💎 *Welcome to JeweledAssist!* \n\n" +
	"How can I help you today?\n\n" +
	"1️⃣ *Buy Jewelry* (Gold/Silver/Platinum)\n" +
	"2️⃣ *Exchange Old Jewel*\n" +
	"3️⃣ *Talk to Sales Assistant*\n" +
	"4️⃣ *Store Location*"

const menuReprompt = "Please select an option or type *Gold*, *Sales*, etc."

const metalPrompt = "What would you like to buy?\n\n" +
	"A) *Gold*  B) *Silver*  C) *Platinum*"

const metalReprompt = "Please type *Gold*, *Silver*, or *Platinum*."

const exchangeMetalPrompt = "What would you like to exchange?\n\n" +
	"A) *Gold*  B) *Silver*  C) *Platinum*"

const itemPrompt = "What kind of item?\n\n" +
	"1️⃣ Ring\n2️⃣ Chain\n3️⃣ Necklace\n4️⃣ Bangle\n5️⃣ Earrings\n6️⃣ Other"

const gramsReprompt = "Please enter a valid weight in grams (e.g. 10)."

const budgetPrompt = "What is your approximate budget?"

const handoffReply = "👨‍💼 *Our sales expert will message you shortly.*"

const fallbackReply = "Type *Menu* to start over."

func gramsPrompt(metal domain.Metal, ratePerGram float64) string {
	return fmt.Sprintf("👍 *Buying %s*\nRate: %s/g\n\nPlease enter *weight (grams)*.",
		metal, rates.FormatINR(int64(ratePerGram)))
}

func exchangeGramsPrompt(metal domain.Metal) string {
	return fmt.Sprintf("♻️ *Exchanging %s*\n\nPlease enter the approximate *weight (grams)*.", metal)
}

func exchangeValuation(metal domain.Metal, location string) string {
	return fmt.Sprintf("*%s Exchange Process*:\n\n1. Purity Check\n2. Net Weight\n3. Valuation\n\n"+
		"Trade-in values are confirmed in store only.\n📍 %s", metal, location)
}

func locationReply(s *domain.StoreSettings) string {
	return fmt.Sprintf("📍 *Store Location*\n\n%s\n\n[Google Maps Link](%s)", s.StoreLocation, s.MapLink)
}

func estimateReply(flow domain.BuyFlow, price int64) string {
	return fmt.Sprintf("💰 *Estimate*\n\nBased on today's rate, the approx cost for %sg %s (%s) is *%s*.\n\nVisit our store to purchase!",
		trimFloat(flow.Grams), flow.Metal, flow.ItemType, rates.FormatINR(price))
}

func requestReceivedReply(flow domain.BuyFlow, price int64) string {
	return fmt.Sprintf("✅ *Request Received for %sg %s*\n\nApprox Value: ~%s\n\n"+
		"I have sent this to the owner for best price approval. I will confirm shortly!",
		trimFloat(flow.Grams), flow.Metal, rates.FormatINR(price))
}

func approvedReply(finalPrice int64) string {
	return fmt.Sprintf("🎉 *The owner has approved a special price for your request!*\n\n"+
		"Approx Estimate: %s\n\nVisit our showroom today to finalize the design!",
		rates.FormatINR(finalPrice))
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
