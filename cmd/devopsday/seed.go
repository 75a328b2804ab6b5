package main

import (
	"errors"

	"github.com/spf13/cobra"

	"talkregistration/config"
	"talkregistration/internal/adapters/auth"
	"talkregistration/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the DevOpsDay Medellín agenda into an empty talk table",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != config.StorePostgres {
		return errors.New("seeding needs STORE_BACKEND=postgres; the memory store is seeded by serve")
	}
	logger := config.NewLogger()
	venue, err := cfg.Venue()
	if err != nil {
		return err
	}

	st, err := openStores(cmd.Context(), cfg, auth.NewBcryptHasher(cfg.BcryptCost))
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := seed.Load(cmd.Context(), st.talks, venue)
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Info("talks already present, nothing seeded")
		return nil
	}
	logger.Info("agenda seeded", "talks", n)
	return nil
}
