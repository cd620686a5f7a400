package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/app"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

var (
	cfgPath string
	envFile string
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:           "notionrelay",
	Short:         "Relay submitted deliverables from a Notion database to Telegram, once per record",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runOnce,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch and exit (default)",
	Args:  cobra.NoArgs,
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Stay running and run a batch on schedule.spec",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{ConfigPath: cfgPath, EnvFile: envFile})
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Schedule(cmd.Context())
	},
}

var sentCmd = &cobra.Command{
	Use:   "sent",
	Short: "Inspect the ids already notified",
}

var sentListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print sent record ids, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{ConfigPath: cfgPath, EnvFile: envFile, StoreOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()
		_, err = a.SentList(cmd.Context(), cmd.OutOrStdout())
		return err
	},
}

var sentForgetCmd = &cobra.Command{
	Use:   "forget <record-id>",
	Short: "Remove a record id so the next run notifies it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{ConfigPath: cfgPath, EnvFile: envFile, StoreOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()
		ok, err := a.SentForget(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s was not in the sent list\n", args[0])
		}
		return nil
	},
}

func runOnce(cmd *cobra.Command, args []string) error {
	a, err := app.New(app.Options{ConfigPath: cfgPath, EnvFile: envFile})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.RunOnce(cmd.Context(), dryRun)
	if err != nil {
		return err
	}
	if res.NothingToDo() {
		a.Logger().Info("nothing to do this run", logx.Err(res.Err))
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config file (yaml or json); optional when env vars are set")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading config")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "format messages without sending or recording them")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "format messages without sending or recording them")

	sentCmd.AddCommand(sentListCmd, sentForgetCmd)
	rootCmd.AddCommand(runCmd, scheduleCmd, sentCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		cancel()
		os.Exit(1)
	}
}
