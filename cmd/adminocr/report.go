package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/pipeline"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

var reportValidated bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the extraction improvement report",
	Long: `Print aggregate success rates, the most frequent suppliers and
recommendations for improving extraction quality. With --validated,
also list the outputs a human has accepted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}

		fmt.Print(svcctx.LearningFrom(ctx).Report())

		if reportValidated {
			markers, err := pipeline.LoadValidatedMarkers(svcctx.HomeFrom(ctx))
			if err != nil {
				return err
			}
			fmt.Printf("\nValidated documents: %d\n", len(markers))
			for _, m := range markers {
				fmt.Printf("- %s/%s (%s)\n", m.Folder, m.Filename, m.ValidatedAt)
			}
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportValidated, "validated", false, "also list human-validated outputs")
	rootCmd.AddCommand(reportCmd)
}
