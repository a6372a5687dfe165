package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simtrade/config"
	"simtrade/internal/ledger"
	"simtrade/logger"
	"simtrade/pkg/storage/postgres"
)

var (
	seedPlayers    int
	seedCash       float64
	seedCurrencies string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo players and accounts",
	Long: `Seed creates numbered demo players, each with one account per listed
currency. The first currency's account starts with the given cash; the
rest start empty.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedPlayers, "players", 4, "number of players to create")
	seedCmd.Flags().Float64Var(&seedCash, "cash", 10000, "starting cash in the first currency")
	seedCmd.Flags().StringVar(&seedCurrencies, "currencies", "USD", "comma-separated account currencies")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedPlayers < 1 {
		return fmt.Errorf("--players must be at least 1")
	}
	currencies := splitCurrencies(seedCurrencies)
	if len(currencies) == 0 {
		return fmt.Errorf("--currencies must list at least one currency")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	pg, err := postgres.Initialize(cfg.Postgres, cfg.Log.Environment, true)
	if err != nil {
		return err
	}
	defer pg.Close()

	store := postgres.NewLedgerStore(pg)
	ctx := context.Background()
	cash := decimal.NewFromFloat(seedCash)

	for i := 1; i <= seedPlayers; i++ {
		player := &ledger.Player{Name: fmt.Sprintf("player-%02d", i)}
		if err := store.CreatePlayer(ctx, player); err != nil {
			return err
		}
		for j, cur := range currencies {
			account := &ledger.Account{PlayerID: player.ID, Currency: cur}
			if j == 0 {
				account.Cash = cash
			}
			if err := store.CreateAccount(ctx, account); err != nil {
				return err
			}
		}
		log.Info("player seeded",
			zap.String("name", player.Name),
			zap.Uint("id", player.ID),
			zap.Strings("currencies", currencies))
	}
	return nil
}

func splitCurrencies(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
