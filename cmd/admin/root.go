package main

import (
	"context"
	"fmt"

	"sortashort_server/config"
	"sortashort_server/logging"
	"sortashort_server/services"
	"sortashort_server/store"

	"github.com/spf13/cobra"
)

// storeOpener builds the store the commands operate on.
type storeOpener func(ctx context.Context, cfg *config.Config) (store.Store, error)

type commandContext struct {
	open     storeOpener
	tableArg string
	cfg      *config.Config
}

func (c *commandContext) store(ctx context.Context) (store.Store, error) {
	if c.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		c.cfg = cfg
	}
	if c.tableArg != "" {
		c.cfg.Storage.Table = c.tableArg
	}
	return c.open(ctx, c.cfg)
}

func openDynamoStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	awsCfg, err := services.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return store.NewDynamoStore(services.NewDynamoDBClient(awsCfg, cfg.AWS.DynamoEndpoint), cfg.Storage.Table), nil
}

func newRootCommand(open storeOpener) *cobra.Command {
	ctx := &commandContext{open: open}
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "sortashort-admin",
		Short:         "Sort a Short table administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{Level: logLevel, Format: "console"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.tableArg, "table", "", "DynamoDB table (overrides TABLE_NAME)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(newUsersCommand(ctx))
	rootCmd.AddCommand(newDBCommand(ctx))

	return rootCmd
}
