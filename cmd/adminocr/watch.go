package main

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/pipeline"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

// watchDebounce coalesces the burst of events a scanner produces while
// writing one document.
const watchDebounce = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the scan folders and process new documents as they arrive",
	Long: `Watch every configured scan folder and run a batch each time new
documents land. Events are debounced so a multi-page scan triggers a
single run. Stops on Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}
		home := svcctx.HomeFrom(ctx)
		configStore := svcctx.ConfigFrom(ctx)
		logger := svcctx.LoggerFrom(ctx)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer watcher.Close()

		for _, folder := range configStore.Get().SubFolders {
			if err := watcher.Add(home.ScanFolderPath(folder)); err != nil {
				return fmt.Errorf("failed to watch %s: %w", folder, err)
			}
		}
		configStore.WatchConfig()

		runBatch := func() {
			runner := pipeline.New(pipeline.Options{
				Home:     home,
				Config:   configStore.Get(),
				Rules:    svcctx.RulesFrom(ctx),
				Profiles: svcctx.ProfilesFrom(ctx),
				Learning: svcctx.LearningFrom(ctx),
				Engine:   svcctx.EngineFrom(ctx),
				Logger:   logger,
			})
			tally, err := runner.Run(ctx)
			if err != nil {
				logger.Error("batch failed", "error", err)
				return
			}
			printTally(tally)
		}

		// process whatever is already there
		runBatch()
		logger.Info("watching scan folders", "folders", configStore.Get().SubFolders)

		var debounce *time.Timer
		pending := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})

			case <-pending:
				runBatch()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Error("watch error", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
