package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/pipeline"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

var validateIndex int

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Mark a review queue entry as accepted",
	Long: `Write a validation marker for one entry of the review queue. Validated
outputs are listed by "report --validated" and are trusted ground truth
for future extraction tuning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}
		h := svcctx.HomeFrom(ctx)

		queue := pipeline.LoadReviewQueue(h.ReviewQueuePath())
		entry, err := queueEntry(queue, validateIndex)
		if err != nil {
			return err
		}

		folder, err := entryFolder(h, entry)
		if err != nil {
			return err
		}
		if err := pipeline.WriteValidatedMarker(h, folder, entry.FinalFilename, entry.ExtractedData, time.Now()); err != nil {
			return err
		}
		fmt.Printf("Validated %s/%s\n", folder, entry.FinalFilename)
		return nil
	},
}

func init() {
	validateCmd.Flags().IntVar(&validateIndex, "index", -1, "review queue index (default: most recent)")
	rootCmd.AddCommand(validateCmd)
}
