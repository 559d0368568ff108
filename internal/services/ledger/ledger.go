// Package ledger aggregates a user's unpaid donations into the amount a
// purchase has to settle.
package ledger

import (
	"spotus/internal/models"

	"github.com/shopspring/decimal"
)

// ComputeTotal returns override when it is set, otherwise the sum of the
// persisted donations, the pending donations and the Spotus donation. Any
// nil or empty source counts as zero.
func ComputeTotal(
	persisted []models.Donation,
	pending []models.Donation,
	spotus *models.SpotusDonation,
	override *decimal.Decimal,
) decimal.Decimal {
	if override != nil {
		return *override
	}

	total := Sum(persisted).Add(Sum(pending))
	if spotus != nil {
		total = total.Add(spotus.Amount)
	}
	return total
}

// Sum adds the amounts of donations.
func Sum(donations []models.Donation) decimal.Decimal {
	total := decimal.Zero
	for _, d := range donations {
		total = total.Add(d.Amount)
	}
	return total
}

// CreditAvailable is the part of totalOwed the user's allocated credits can
// cover. Without a user it is zero.
func CreditAvailable(user *models.User, totalOwed decimal.Decimal) decimal.Decimal {
	if user == nil {
		return decimal.Zero
	}
	return decimal.Min(user.AllocatedCredits, totalOwed)
}

func CreditCoversTotal(total decimal.Decimal) bool {
	return total.IsZero()
}

// CreditCoversPartial reports whether credits pay some, but not all, of total.
func CreditCoversPartial(user *models.User, total decimal.Decimal) bool {
	return !CreditCoversTotal(total) && CreditAvailable(user, total).IsPositive()
}
