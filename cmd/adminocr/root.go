package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/config"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/learning"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/ocr"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
	"github.com/Huser-Networks/admin-assistant-ocr/version"
)

var (
	homeDir  string
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "adminocr",
	Short: "OCR-driven renaming of scanned administrative documents",
	Long: `Adminocr watches folders of scanned administrative documents (invoices,
tax letters, bank statements), OCRs them, extracts the document date, the
supplier and the invoice or reference number, and places a renamed copy
into a mirrored output tree.

The extraction is profile-aware: your own name, address and companies are
configured once and never mistaken for the document issuer, with
per-folder overrides on top of the global profile.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "adminocr home directory (default: ~/.adminocr)",
	)
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: <home>/config.json)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, error",
	)
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// serviceContext wires every store and the OCR engine for one run and
// attaches them to the command's context; commands pull what they need
// with the svcctx extractors.
func serviceContext(cmd *cobra.Command) (context.Context, error) {
	svc, err := buildServices()
	if err != nil {
		return nil, err
	}
	return svcctx.WithServices(cmd.Context(), svc), nil
}

func buildServices() (*svcctx.Services, error) {
	logger := newLogger()

	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	configPath := cfgFile
	if configPath == "" {
		configPath = h.ConfigPath()
	}
	cm, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	rs, err := rules.Load(h.RulesPath())
	if err != nil {
		return nil, fmt.Errorf("extraction rules: %w", err)
	}

	ps, err := profile.Open(h.HierarchicalConfigPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("hierarchical config: %w", err)
	}

	for _, folder := range cm.Get().SubFolders {
		if err := h.EnsureFolder(folder); err != nil {
			return nil, err
		}
	}

	return &svcctx.Services{
		Home:     h,
		Config:   cm,
		Rules:    rs,
		Profiles: ps,
		Learning: learning.Open(h, logger),
		Engine:   ocr.NewExecEngine(ocr.ExecEngineConfig{Logger: logger}),
		Logger:   logger,
	}, nil
}
