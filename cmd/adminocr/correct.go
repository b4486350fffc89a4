package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/extract"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/filename"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/pipeline"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

var (
	correctIndex int
	correctList  bool
)

var correctCmd = &cobra.Command{
	Use:   "correct [kind corrected-value]",
	Short: "Correct an extraction from the review queue",
	Long: `Record a human correction for one entry of the review queue and
rename the corresponding output file. The correction is remembered:
future documents that resemble this one get the corrected value
suggested automatically.

Kinds: date, supplier, invoice, filename.

Examples:
  adminocr correct --list                 # show the review queue
  adminocr correct supplier "EDF"         # fix the most recent entry
  adminocr correct date 20240315 --index 2`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}

		queue := pipeline.LoadReviewQueue(svcctx.HomeFrom(ctx).ReviewQueuePath())
		if correctList {
			if len(queue) == 0 {
				fmt.Println("Review queue is empty.")
				return nil
			}
			for i, e := range queue {
				fmt.Printf("[%d] %s\n    date=%s supplier=%q invoice=%q\n",
					i, e.FinalFilename,
					e.ExtractedData.Date, e.ExtractedData.Supplier, e.ExtractedData.Invoice)
				for kind, s := range e.Suggestions {
					fmt.Printf("    suggested %s: %q (corrected before on a similar document)\n", kind, s.CorrectedValue)
				}
			}
			return nil
		}

		if len(args) != 2 {
			return fmt.Errorf("expected <kind> <corrected-value> (or --list)")
		}
		kind := extract.Kind(args[0])
		value := args[1]

		entry, err := queueEntry(queue, correctIndex)
		if err != nil {
			return err
		}
		return applyCorrection(ctx, entry, kind, value)
	},
}

// queueEntry picks one review entry; a negative index means the most
// recent.
func queueEntry(queue []pipeline.ReviewEntry, index int) (pipeline.ReviewEntry, error) {
	if len(queue) == 0 {
		return pipeline.ReviewEntry{}, fmt.Errorf("review queue is empty, run a batch first")
	}
	if index < 0 {
		index = len(queue) - 1
	}
	if index >= len(queue) {
		return pipeline.ReviewEntry{}, fmt.Errorf("index %d out of range (queue has %d entries)", index, len(queue))
	}
	return queue[index], nil
}

func applyCorrection(ctx context.Context, entry pipeline.ReviewEntry, kind extract.Kind, value string) error {
	ex := entry.ExtractedData

	var previous string
	switch kind {
	case extract.KindDate:
		previous, ex.Date = ex.Date, value
	case extract.KindSupplier:
		previous, ex.Supplier = ex.Supplier, value
	case extract.KindInvoice:
		previous, ex.Invoice = ex.Invoice, value
	case "filename":
		previous = entry.FinalFilename
	default:
		return fmt.Errorf("unknown kind %q (want date, supplier, invoice or filename)", kind)
	}

	if err := svcctx.LearningFrom(ctx).AddCorrection(kind, entry.OCRTextPreview, value, previous); err != nil {
		return err
	}

	newName := value
	if kind != "filename" {
		newName = resynthesize(entry.FinalFilename, ex)
	}
	if newName == entry.FinalFilename {
		fmt.Printf("Correction recorded, filename unchanged: %s\n", newName)
		return nil
	}

	oldPath, err := outputPathFor(svcctx.HomeFrom(ctx), entry)
	if err != nil {
		return err
	}
	newPath, err := pipeline.RenameOutput(oldPath, newName)
	if err != nil {
		return err
	}
	fmt.Printf("Correction recorded: %s -> %s\n", entry.FinalFilename, filepath.Base(newPath))
	return nil
}

// resynthesize rebuilds the output name after a field correction. A
// missing date keeps the date segment already in the current name.
func resynthesize(currentName string, ex extract.Result) string {
	date := ex.Date
	if date == "" {
		date = strings.SplitN(currentName, "_", 2)[0]
	}
	supplier := ex.Supplier
	if supplier == "" {
		supplier = extract.UnknownSupplier
	}
	return filename.Synthesize(date, supplier, ex.Invoice)
}

// outputPathFor locates the output copy a review entry refers to by
// mirroring its source path into the output tree.
func outputPathFor(h *home.Dir, entry pipeline.ReviewEntry) (string, error) {
	rel, err := filepath.Rel(h.ScanPath(), entry.OriginalFile)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("source %s is not under the scan tree", entry.OriginalFile)
	}
	return filepath.Join(h.OutputPath(), filepath.Dir(rel), entry.FinalFilename), nil
}

// entryFolder returns the category folder a review entry came from.
func entryFolder(h *home.Dir, entry pipeline.ReviewEntry) (string, error) {
	rel, err := filepath.Rel(h.ScanPath(), entry.OriginalFile)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("source %s is not under the scan tree", entry.OriginalFile)
	}
	return strings.Split(rel, string(filepath.Separator))[0], nil
}

func init() {
	correctCmd.Flags().IntVar(&correctIndex, "index", -1, "review queue index (default: most recent)")
	correctCmd.Flags().BoolVar(&correctList, "list", false, "list the review queue and exit")
	rootCmd.AddCommand(correctCmd)
}
