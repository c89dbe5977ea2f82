package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"krishighor/internal/config"
	"krishighor/internal/http/handlers"
	"krishighor/internal/notify"
	"krishighor/internal/recommend"
	"krishighor/internal/repos"
	"krishighor/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "krishighorctl",
		Short:        "maintenance tasks for the KrishiGhor marketplace",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		trainIndexCommand(),
		relayOutboxCommand(),
		seedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (*repos.Store, error) {
	return repos.OpenDB(cfg.DBDriver, cfg.DBDSN, cfg.DBMaxConns)
}

func trainIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train-index",
		Short: "rebuild the crop recommendation index and persist it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			catalog := services.NewCatalogService(repos.NewCropRepo(store))
			engine := recommend.NewEngine(catalog, handlers.IndexStore(store, cfg), recommend.Options{
				Neighbors: cfg.RecommendNeighbors,
				Limit:     cfg.RecommendLimit,
			})
			idx, err := engine.Retrain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Trained index version %d over %d crops (%s store)\n", idx.Version, len(idx.Crops), cfg.IndexStore)
			return nil
		},
	}
}

func relayOutboxCommand() *cobra.Command {
	var (
		limit int
		every time.Duration
	)
	cmd := &cobra.Command{
		Use:   "relay-outbox",
		Short: "publish pending order confirmations to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			producer, err := notify.NewKafkaProducer(cfg.KafkaBrokers)
			if err != nil {
				return err
			}
			defer producer.Close()

			relay := &notify.Relay{Outbox: repos.NewOutboxRepo(store), Producer: producer}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for {
				sent, err := relay.RelayOnce(ctx, limit)
				if err != nil {
					return err
				}
				if sent > 0 {
					fmt.Printf("Relayed %d messages\n", sent)
				}
				if every <= 0 {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(every):
				}
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum messages per batch")
	cmd.Flags().DurationVar(&every, "every", 0, "keep relaying at this interval (0 runs once)")
	return cmd
}

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "load the default crop catalog into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := repos.SeedIfEmpty(context.Background(), store)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Catalog already populated")
				return nil
			}
			fmt.Printf("Inserted %d crops\n", n)
			return nil
		},
	}
}
