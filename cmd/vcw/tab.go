package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// Tab commands
var tabCmd = &cobra.Command{
	Use:   "tab",
	Short: "Manage tabs and their calculator content",
}

var tabCreateCmd = &cobra.Command{
	Use:   "create PAGE_ID NAME",
	Short: "Add a calculator tab to a page",
	Long: `Add a calculator tab to a page. The new tab becomes the active tab.

Examples:
  vcw tab create 7f3c... "Roof snow" --kind snow_load
  vcw tab create 7f3c... "Site" --kind "Seismic Hazards" --position 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		var position *int
		if cmd.Flags().Changed("position") {
			p, _ := cmd.Flags().GetInt("position")
			position = &p
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		tab, err := a.engine.CreateTab(cmd.Context(), args[0], args[1], types.Kind(kind), position)
		if err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
		fmt.Printf("✓ Tab created: %s (%s, ID: %s)\n", tab.Name, tab.Kind, tab.ID)
		return nil
	},
}

var tabRenameCmd = &cobra.Command{
	Use:   "rename TAB_ID NAME",
	Short: "Rename a tab",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		tab, err := a.engine.UpdateTab(cmd.Context(), args[0], types.TabPatch{Name: types.StringPtr(args[1])})
		if err != nil {
			return fmt.Errorf("failed to rename tab: %w", err)
		}
		fmt.Printf("✓ Tab renamed: %s\n", tab.Name)
		return nil
	},
}

var tabDeleteCmd = &cobra.Command{
	Use:   "delete TAB_ID",
	Short: "Delete a tab and its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.DeleteTab(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete tab: %w", err)
		}
		fmt.Printf("✓ Tab deleted: %s\n", args[0])
		return nil
	},
}

var tabActivateCmd = &cobra.Command{
	Use:   "activate TAB_ID",
	Short: "Make a tab the active tab of its page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.ActivateTab(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to activate tab: %w", err)
		}
		fmt.Printf("✓ Tab activated: %s\n", args[0])
		return nil
	},
}

var tabReorderCmd = &cobra.Command{
	Use:   "reorder PAGE_ID TAB_ID...",
	Short: "Set the order of the tabs on a page",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.ReorderTabs(cmd.Context(), args[0], args[1:]); err != nil {
			return fmt.Errorf("failed to reorder tabs: %w", err)
		}
		fmt.Println("✓ Tabs reordered")
		return nil
	},
}

var tabSetCmd = &cobra.Command{
	Use:   "set TAB_ID",
	Short: "Merge content into a tab",
	Long: `Merge a YAML or JSON fragment into a tab's content. Objects are merged
key by key; arrays and scalars replace what was there. Reference
constants cannot be changed.

Examples:
  # snow.yaml
  snowDefaults:
    slope: 4
    location: Whistler

  vcw tab set 91ab... -f snow.yaml
  vcw tab set 91ab... -f full.json --full`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")
		full, _ := cmd.Flags().GetBool("full")

		content, err := readContent(filename)
		if err != nil {
			return err
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if full {
			err = a.engine.SaveTabDataImmediately(cmd.Context(), args[0], "", content)
		} else {
			// The debounced write is flushed when the session closes
			err = a.engine.UpdateTabData(cmd.Context(), args[0], "", content)
		}
		if err != nil {
			return fmt.Errorf("failed to update tab content: %w", err)
		}
		fmt.Printf("✓ Tab content updated: %s\n", args[0])
		return nil
	},
}

var tabClearCmd = &cobra.Command{
	Use:   "clear TAB_ID",
	Short: "Reset a tab's content to its template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.ReplaceTabData(cmd.Context(), args[0], types.Content{}); err != nil {
			return fmt.Errorf("failed to clear tab: %w", err)
		}
		fmt.Printf("✓ Tab cleared: %s\n", args[0])
		return nil
	},
}

var tabShowCmd = &cobra.Command{
	Use:   "show TAB_ID",
	Short: "Print a tab's merged content as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deltaOnly, _ := cmd.Flags().GetBool("delta")

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		tab, ok := a.engine.Tab(args[0])
		if !ok {
			return fmt.Errorf("tab not found: %s", args[0])
		}
		if tab.NeedsPassword {
			fmt.Fprintf(os.Stderr, "Tab content is encrypted; set %s to view it\n", passwordEnv)
		}
		if deltaOnly {
			return printJSON(cmd.OutOrStdout(), tab.Delta)
		}
		return printJSON(cmd.OutOrStdout(), tab.Merged)
	},
}

// readContent parses a YAML (or JSON) object from filename, or stdin for "-"
func readContent(filename string) (types.Content, error) {
	var (
		data []byte
		err  error
	)
	if filename == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}

	var content types.Content
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse content: %v", err)
	}
	if content == nil {
		return nil, fmt.Errorf("content must be an object")
	}
	return normalizeContent(content), nil
}

func init() {
	tabCmd.AddCommand(tabCreateCmd)
	tabCmd.AddCommand(tabRenameCmd)
	tabCmd.AddCommand(tabDeleteCmd)
	tabCmd.AddCommand(tabActivateCmd)
	tabCmd.AddCommand(tabReorderCmd)
	tabCmd.AddCommand(tabSetCmd)
	tabCmd.AddCommand(tabClearCmd)
	tabCmd.AddCommand(tabShowCmd)

	tabCreateCmd.Flags().String("kind", "", "Calculator kind (see 'vcw kinds')")
	tabCreateCmd.Flags().Int("position", 0, "Insert position; appends when omitted or out of range")
	_ = tabCreateCmd.MarkFlagRequired("kind")

	tabSetCmd.Flags().StringP("file", "f", "", "YAML or JSON file with the content, - for stdin (required)")
	tabSetCmd.Flags().Bool("full", false, "Treat the file as the full content and save it immediately")
	_ = tabSetCmd.MarkFlagRequired("file")

	tabShowCmd.Flags().Bool("delta", false, "Print only the stored difference from the template")
}
