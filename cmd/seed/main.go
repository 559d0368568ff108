// Command seed creates an admin account with allocated credits and a few
// unpaid donations, so a checkout can be exercised end to end.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"spotus/internal/config"
	"spotus/internal/logging"
	"spotus/internal/models"
	"spotus/internal/repositories"
	"spotus/internal/validation"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logging.Setup(cfg.Debug)

	if err := seed(context.Background(), cfg); err != nil {
		slog.Error("Seeding failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg config.Settings) error {
	email := config.GetEnv("ADMIN_EMAIL", "")
	password := config.GetEnv("ADMIN_PASSWORD", "")

	v := validation.New()
	v.Present("ADMIN_EMAIL", email)
	v.Password("ADMIN_PASSWORD", password)
	if !v.Valid() {
		for _, fe := range v.Errors {
			slog.Error("Invalid seed setting", slog.String("field", fe.Field), slog.String("message", fe.Message))
		}
		return errors.New("ADMIN_EMAIL and a strong ADMIN_PASSWORD must be set")
	}

	credits, err := decimal.NewFromString(config.GetEnv("SEED_CREDITS", "10.00"))
	if err != nil {
		return err
	}

	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	users := repositories.NewUserRepository(db, nil)
	donations := repositories.NewDonationRepository(db)

	if _, err := users.GetByEmail(ctx, email); err == nil {
		slog.Info("Admin user already exists", slog.String("email", email))
		return nil
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:            email,
		Password:         string(hashed),
		FirstName:        "Spot",
		LastName:         "Admin",
		Role:             models.RoleAdmin,
		Status:           models.UserStatusActive,
		AllocatedCredits: credits,
		TokenVersion:     1,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	pledges := []models.Donation{
		{UserID: admin.ID, PitchID: 1, Amount: decimal.RequireFromString("15.00"), DonationType: models.DonationTypePayment, Status: models.DonationStatusUnpaid},
		{UserID: admin.ID, PitchID: 2, Amount: decimal.RequireFromString("10.00"), DonationType: models.DonationTypePayment, Status: models.DonationStatusUnpaid},
		{UserID: admin.ID, PitchID: 3, Amount: decimal.RequireFromString("5.00"), DonationType: models.DonationTypeCredit, Status: models.DonationStatusUnpaid},
	}
	for i := range pledges {
		if err := donations.Create(ctx, &pledges[i]); err != nil {
			return err
		}
	}

	if err := donations.CreateSpotusDonation(ctx, &models.SpotusDonation{
		UserID: admin.ID,
		Amount: decimal.RequireFromString("2.50"),
	}); err != nil {
		return err
	}

	slog.Info("Admin account seeded",
		slog.String("email", email),
		slog.String("credits", credits.StringFixed(2)),
		slog.Int("donations", len(pledges)))
	return nil
}
