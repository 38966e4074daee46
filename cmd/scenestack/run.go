package main

import (
	"context"

	"github.com/aretw0/scenestack/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Run a scripted scene scenario",
	Long: `Builds a scene catalog from the script, drives its steps against a fresh director
and checks every expectation. Exits non-zero on the first failed step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		quiet, _ := cmd.Flags().GetBool("quiet")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		b, err := openBackends(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		err = cli.Execute(sigCtx, cli.RunOptions{
			ScriptPath: args[0],
			Out:        cmd.OutOrStdout(),
			Logger:     logger,
			Debug:      cfg.Log.Level == "debug",
			Quiet:      quiet,
			Store:      b.store,
			MasterData: b.masterData,
		})
		if sig := sigCtx.Signal(); sig != nil {
			logger.Info("interrupted", "signal", sig.String())
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("quiet", "q", false, "Only report failures")
	runCmd.Flags().String("masterdata", "", "Path to a YAML master data snapshot")
}
