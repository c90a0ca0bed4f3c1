package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/database"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/repository"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

var (
	env         string
	p99PriceID  string
	p199PriceID string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema tools",
		Long:  `Apply the database schema and seed the plan catalog.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(newUpCommand(), newSeedCommand())
	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply the schema",
		RunE:  runUp,
	}
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the plan catalog",
		Long:  `Insert or update the purchasable plans, linking them to provider price references.`,
		RunE:  runSeed,
	}

	cmd.Flags().StringVar(&p99PriceID, "p99-price", "", "Provider price reference for the p99 plan")
	cmd.Flags().StringVar(&p199PriceID, "p199-price", "", "Provider price reference for the p199 plan")

	return cmd
}

func runUp(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(database.Get()); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info("schema migration completed")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer database.Close()

	planRepo := repository.NewPlanRepository(database.Get(), logger.NewLogger())
	ctx := context.Background()

	seeds := []struct {
		code           string
		name           string
		quota          int
		priceCents     int64
		providerPrice  string
		validityMonths int
		features       []string
	}{
		{constants.PlanP99, "Plan Asesoría", 100, 9900, p99PriceID, 12, []string{
			"100 consultas con modelo completo",
			"Diagnóstico y blindaje detallados",
			"Vigencia de 12 meses",
		}},
		{constants.PlanP199, "Plan Blindaje Total", 250, 19900, p199PriceID, 12, []string{
			"250 consultas con modelo completo",
			"Diagnóstico, blindaje y documentos",
			"Vigencia de 12 meses",
			"Prioridad en nuevas funciones",
		}},
	}

	for _, s := range seeds {
		p, err := plan.NewPlan(s.code, s.name, s.quota, s.priceCents, "mxn", s.providerPrice, s.validityMonths)
		if err != nil {
			return fmt.Errorf("failed to build plan %s: %w", s.code, err)
		}
		p.SetFeatures(s.features)
		if err := planRepo.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", s.code, err)
		}
		logger.Info("plan seeded", "code", s.code, "provider_price", s.providerPrice)
	}

	return nil
}

func setup() error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}
