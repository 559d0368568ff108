package ledger

import (
	"testing"

	"spotus/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func donations(amounts ...string) []models.Donation {
	out := make([]models.Donation, len(amounts))
	for i, a := range amounts {
		out[i] = models.Donation{ID: uint(i + 1), Amount: dec(a)}
	}
	return out
}

func TestComputeTotal(t *testing.T) {
	override := dec("5.00")

	tests := []struct {
		name      string
		persisted []models.Donation
		pending   []models.Donation
		spotus    *models.SpotusDonation
		override  *decimal.Decimal
		want      string
	}{
		{name: "all empty", want: "0"},
		{name: "empty slices", persisted: []models.Donation{}, pending: []models.Donation{}, want: "0"},
		{name: "persisted only", persisted: donations("10.00", "15.00"), want: "25.00"},
		{name: "pending only", pending: donations("3.50"), want: "3.50"},
		{
			name:      "all sources",
			persisted: donations("10.00"),
			pending:   donations("2.25"),
			spotus:    &models.SpotusDonation{Amount: dec("1.75")},
			want:      "14.00",
		},
		{
			name:      "override wins",
			persisted: donations("10.00"),
			spotus:    &models.SpotusDonation{Amount: dec("1.00")},
			override:  &override,
			want:      "5.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotal(tt.persisted, tt.pending, tt.spotus, tt.override)
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestComputeTotalOrderIndependent(t *testing.T) {
	set := donations("0.10", "0.20", "19.99", "7.01", "100.00")
	want := ComputeTotal(set, nil, nil, nil)

	reversed := make([]models.Donation, len(set))
	for i := range set {
		reversed[len(set)-1-i] = set[i]
	}
	rotated := append(append([]models.Donation{}, set[2:]...), set[:2]...)

	assert.True(t, want.Equal(ComputeTotal(reversed, nil, nil, nil)))
	assert.True(t, want.Equal(ComputeTotal(rotated, nil, nil, nil)))
	// splitting the set across sources does not change the sum either
	assert.True(t, want.Equal(ComputeTotal(set[:3], set[3:], nil, nil)))
	assert.True(t, dec("127.30").Equal(want))
}

func TestCreditAvailable(t *testing.T) {
	user := &models.User{AllocatedCredits: dec("10.00")}

	assert.True(t, decimal.Zero.Equal(CreditAvailable(nil, dec("25.00"))))
	assert.True(t, dec("10.00").Equal(CreditAvailable(user, dec("25.00"))))
	assert.True(t, dec("4.00").Equal(CreditAvailable(user, dec("4.00"))))
}

func TestCreditCovers(t *testing.T) {
	user := &models.User{AllocatedCredits: dec("10.00")}
	broke := &models.User{AllocatedCredits: decimal.Zero}

	assert.True(t, CreditCoversTotal(decimal.Zero))
	assert.False(t, CreditCoversTotal(dec("0.01")))

	assert.True(t, CreditCoversPartial(user, dec("25.00")))
	assert.False(t, CreditCoversPartial(broke, dec("25.00")))
	assert.False(t, CreditCoversPartial(user, decimal.Zero))
	assert.False(t, CreditCoversPartial(nil, dec("25.00")))
}
