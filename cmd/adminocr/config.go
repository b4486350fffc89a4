package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/config"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and modify the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(svcctx.ConfigFrom(ctx).Get(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the home directory with default configuration",
	Long: `Create the adminocr home directory, the default configuration, the
default extraction rules and an empty identity profile. Safe to re-run:
existing files are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if !h.ConfigExists() {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return err
			}
		}
		if _, err := rules.Load(h.RulesPath()); err != nil {
			return err
		}

		// creates the remaining stores and the per-folder directories
		if _, err := buildServices(); err != nil {
			return err
		}
		fmt.Printf("Initialized %s\n", h.Path())
		return nil
	},
}

var configFoldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Manage the processed category folders",
}

var configFoldersAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a category folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}
		name := args[0]
		store := svcctx.ConfigFrom(ctx)

		cfg := *store.Get()
		if slices.Contains(cfg.SubFolders, name) {
			return fmt.Errorf("folder %q already configured", name)
		}
		cfg.SubFolders = append(slices.Clone(cfg.SubFolders), name)
		if err := store.Save(&cfg); err != nil {
			return err
		}
		if err := svcctx.HomeFrom(ctx).EnsureFolder(name); err != nil {
			return err
		}
		fmt.Printf("Added folder %q\n", name)
		return nil
	},
}

var configFoldersRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a category folder from the configuration",
	Long: `Remove a folder from the processed list. The folder's files on disk
are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}
		name := args[0]
		store := svcctx.ConfigFrom(ctx)

		cfg := *store.Get()
		i := slices.Index(cfg.SubFolders, name)
		if i == -1 {
			return fmt.Errorf("folder %q is not configured", name)
		}
		cfg.SubFolders = slices.Delete(slices.Clone(cfg.SubFolders), i, i+1)
		if err := store.Save(&cfg); err != nil {
			return err
		}
		fmt.Printf("Removed folder %q\n", name)
		return nil
	},
}

func init() {
	configFoldersCmd.AddCommand(configFoldersAddCmd, configFoldersRemoveCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd, configFoldersCmd)
	rootCmd.AddCommand(configCmd)
}
