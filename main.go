package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bottlecangowhere/pkg/app"
	"bottlecangowhere/pkg/bot"
	"bottlecangowhere/pkg/bot/telegramadapter"
	"bottlecangowhere/pkg/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath, envFile string

	root := &cobra.Command{
		Use:           "rvmbot",
		Short:         "BottleCanGowhere: find, report and get reminded about reverse vending machines",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			return config.LoadConfig(cfgPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "bot_config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with BOT_TOKEN")

	root.AddCommand(newNearestCmd())
	return root
}

func newNearestCmd() *cobra.Command {
	var lat, lon float64
	var k int

	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Print the machines nearest to a coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.PrintNearest(cmd.OutOrStdout(), config.GetConfig().Storage.MachinesCSV, lat, lon, k)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	cmd.Flags().IntVar(&k, "k", config.DefaultResults, "number of machines to list")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.GetConfig()

	if err := config.LoadBotTokenFromEnv(); err != nil {
		return err
	}

	botClient, err := bot.NewClient(config.GetBotToken(), cfg.Telegram.Debug)
	if err != nil {
		return err
	}
	log.Printf("Authorized on account %s", botClient.Self.UserName)

	botPort, err := telegramadapter.New(botClient, log.Default())
	if err != nil {
		return err
	}

	application, err := app.New(cfg, botPort)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx, botClient)
}
