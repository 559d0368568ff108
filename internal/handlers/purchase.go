package handlers

import (
	"spotus/internal/services/purchase"
	"spotus/internal/utils"
	"spotus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type PurchaseHandler struct {
	purchases purchase.Service
}

func NewPurchaseHandler(purchases purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// purchaseFields are the inputs posted under "purchase". Form posts may
// nest them as purchase.first_name or purchase[first_name].
type purchaseFields struct {
	FirstName         string `json:"first_name" form:"first_name"`
	LastName          string `json:"last_name" form:"last_name"`
	Address1          string `json:"address1" form:"address1"`
	Address2          string `json:"address2" form:"address2"`
	City              string `json:"city" form:"city"`
	State             string `json:"state" form:"state"`
	Zip               string `json:"zip" form:"zip"`
	Number            string `json:"credit_card_number" form:"credit_card_number"`
	Month             string `json:"credit_card_month" form:"credit_card_month"`
	Year              string `json:"credit_card_year" form:"credit_card_year"`
	Type              string `json:"credit_card_type" form:"credit_card_type"`
	VerificationValue string `json:"verification_value" form:"verification_value"`
}

// purchaseForm carries the billing and card inputs next to the donations
// being paid. It binds from JSON and from form posts alike.
type purchaseForm struct {
	Purchase       purchaseFields `json:"purchase" form:"purchase"`
	DonationIDs    []uint         `json:"donation_ids" form:"donation_ids"`
	CreditPitchIDs []uint         `json:"credit_pitch_ids" form:"credit_pitch_ids"`
}

func (f *purchaseForm) request(userID uint) purchase.CreateRequest {
	in := f.Purchase
	req := purchase.CreateRequest{
		UserID: userID,
		Billing: purchase.Billing{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Address1:  in.Address1,
			Address2:  in.Address2,
			City:      in.City,
			State:     in.State,
			Zip:       in.Zip,
		},
		DonationIDs:    idsOrNil(f.DonationIDs),
		CreditPitchIDs: idsOrNil(f.CreditPitchIDs),
	}

	card := purchase.CardFields{
		Number:            in.Number,
		Month:             in.Month,
		Year:              in.Year,
		Type:              in.Type,
		VerificationValue: in.VerificationValue,
	}
	if card != (purchase.CardFields{}) {
		req.Card = &card
	}
	return req
}

// idsOrNil keeps "no ids posted" distinct from a selection: an empty list
// means every unpaid donation, same as an absent one.
func idsOrNil(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// Create settles the caller's donations.
func (h *PurchaseHandler) Create(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var form purchaseForm
	if err := c.BodyParser(&form); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	p, err := h.purchases.Create(c.UserContext(), form.request(claims.UserID))
	if err != nil {
		return settlementError(c, err)
	}

	return response.Created(c, "Purchase completed", p)
}

func (h *PurchaseHandler) Get(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid purchase ID")
	}

	p, err := h.purchases.Get(c.UserContext(), claims.UserID, uint(id))
	if err != nil {
		return settlementError(c, err)
	}
	return response.Success(c, "Purchase retrieved", p)
}

func (h *PurchaseHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	page := utils.GetPagination(c, 1, 20)
	purchases, total, err := h.purchases.List(c.UserContext(), claims.UserID, page.Limit, page.Offset)
	if err != nil {
		return settlementError(c, err)
	}
	page.SetTotal(total)

	return response.Success(c, "Purchases retrieved", utils.NewPaginatedResponse(purchases, page))
}

// Summary backs the checkout page: what is owed and how much credit applies.
func (h *PurchaseHandler) Summary(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	summary, err := h.purchases.Summary(c.UserContext(), claims.UserID)
	if err != nil {
		return settlementError(c, err)
	}
	return response.Success(c, "Purchase summary", summary)
}

// UnpaidDonations lists the caller's donations still awaiting payment.
func (h *PurchaseHandler) UnpaidDonations(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	donations, err := h.purchases.UnpaidDonations(c.UserContext(), claims.UserID)
	if err != nil {
		return settlementError(c, err)
	}
	return response.Success(c, "Unpaid donations", donations)
}
