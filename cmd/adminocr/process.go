package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/pipeline"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

var (
	processWorkers int
	processFolder  string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process every scanned document once",
	Long: `Run one batch over all configured scan folders: OCR each document,
extract its fields and place a renamed copy in the output tree.

Examples:
  adminocr process                    # all folders, default worker count
  adminocr process --workers 4        # bounded pool
  adminocr process --folder Factures  # one folder only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}

		cfg := *svcctx.ConfigFrom(ctx).Get()
		if processFolder != "" {
			if !slices.Contains(cfg.SubFolders, processFolder) {
				return fmt.Errorf("folder %q is not configured", processFolder)
			}
			cfg.SubFolders = []string{processFolder}
		}

		runner := pipeline.New(pipeline.Options{
			Home:     svcctx.HomeFrom(ctx),
			Config:   &cfg,
			Rules:    svcctx.RulesFrom(ctx),
			Profiles: svcctx.ProfilesFrom(ctx),
			Learning: svcctx.LearningFrom(ctx),
			Engine:   svcctx.EngineFrom(ctx),
			Logger:   svcctx.LoggerFrom(ctx),
			Workers:  processWorkers,
		})

		tally, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		printTally(tally)
		return nil
	},
}

func printTally(tally *pipeline.Tally) {
	for _, r := range tally.Results {
		switch r.Status {
		case pipeline.StatusRenamed:
			fmt.Printf("  %s -> %s\n", r.SourcePath, r.OutputPath)
		default:
			fmt.Printf("  %s: %s (%s)\n", r.SourcePath, r.Status, r.Reason)
		}
	}
	fmt.Printf("%d renamed, %d skipped, %d failed (%s)\n",
		tally.Renamed, tally.Skipped, tally.Failed, tally.Duration)
}

func init() {
	processCmd.Flags().IntVar(&processWorkers, "workers", 0, "worker pool size (default: config, then CPU count)")
	processCmd.Flags().StringVar(&processFolder, "folder", "", "process only this category folder")
	rootCmd.AddCommand(processCmd)
}
