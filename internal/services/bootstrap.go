package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"piggybank/internal/log"
	"piggybank/internal/models"
)

type SchemaResetter interface {
	Reset() error
}

// Bootstrapper wipes the database and seeds a demo admin. Only meant for
// test and demo environments.
type Bootstrapper struct {
	schema        SchemaResetter
	users         *UserService
	ledger        *LedgerService
	adminPassword string
	logger        *log.Logger
}

func NewBootstrapper(schema SchemaResetter, users *UserService, ledger *LedgerService, adminPassword string, logger *log.Logger) *Bootstrapper {
	return &Bootstrapper{
		schema:        schema,
		users:         users,
		ledger:        ledger,
		adminPassword: adminPassword,
		logger:        logger.WithComponent(log.ComponentApp),
	}
}

// Reset recreates the schema and seeds the admin user with a "Test Bank"
// holding a daily 10.00 allowance. It returns the admin.
func (b *Bootstrapper) Reset(ctx context.Context) (models.User, error) {
	if err := b.schema.Reset(); err != nil {
		return models.User{}, fmt.Errorf("reset schema: %w", err)
	}
	admin, err := b.users.Register(ctx, RegisterRequest{
		Username: "admin",
		Email:    "admin@piggy-bank.us",
		Password: b.adminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("seed admin: %w", err)
	}
	bank, err := b.ledger.CreateBank(ctx, admin.ID, "Test Bank")
	if err != nil {
		return models.User{}, fmt.Errorf("seed bank: %w", err)
	}
	_, err = b.ledger.CreateAllowance(ctx, AllowanceRequest{
		ActorID:     admin.ID,
		BankID:      bank.ID,
		Amount:      decimal.NewFromInt(10),
		Description: "Daily allowance",
		Frequency:   models.FrequencyDaily,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("seed allowance: %w", err)
	}
	b.logger.WarnContext(ctx, "database reset", log.FieldUserID, admin.ID)
	return admin, nil
}
