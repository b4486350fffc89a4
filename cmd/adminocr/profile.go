package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/svcctx"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and modify the identity profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show [folder]",
	Short: "Print the global profile, or one folder's resolved profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}
		profiles := svcctx.ProfilesFrom(ctx)

		var out any
		if len(args) == 1 {
			eff, err := profiles.Effective(args[0])
			if err != nil {
				return err
			}
			out = eff
		} else {
			out = profiles.Snapshot()
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var profileUpdateGlobalCmd = &cobra.Command{
	Use:   "update-global <json>",
	Short: "Deep-merge a JSON patch into the global profile",
	Long: `Deep-merge a JSON object into the global profile. Lists are unioned,
nested objects merged, scalars replaced.

Example:
  adminocr profile update-global '{"user_info":{"names":["Jean DUPONT"]}}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}

		var patch map[string]any
		if err := json.Unmarshal([]byte(args[0]), &patch); err != nil {
			return fmt.Errorf("invalid patch: %w", err)
		}
		if err := svcctx.ProfilesFrom(ctx).UpdateGlobal(patch); err != nil {
			return err
		}
		fmt.Println("Global profile updated.")
		return nil
	},
}

var profileSetDeltaCmd = &cobra.Command{
	Use:   "set-delta <folder> <json>",
	Short: "Create or replace one folder's profile delta",
	Long: `Set a folder's delta against the global profile. The delta is a JSON
object with optional "description", "add" and "remove" keys; "add" is
applied before "remove".

Example:
  adminocr profile set-delta Impots '{"remove":{"user_info":{"names":["Jean DUPONT"]}}}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := serviceContext(cmd)
		if err != nil {
			return err
		}

		var delta profile.FolderDelta
		if err := json.Unmarshal([]byte(args[1]), &delta); err != nil {
			return fmt.Errorf("invalid delta: %w", err)
		}
		if err := svcctx.ProfilesFrom(ctx).SetFolderDelta(args[0], delta); err != nil {
			return err
		}
		fmt.Printf("Delta set for folder %q.\n", args[0])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileUpdateGlobalCmd, profileSetDeltaCmd)
	rootCmd.AddCommand(profileCmd)
}
