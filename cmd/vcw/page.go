package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// Page commands
var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Manage pages",
}

var pageCreateCmd = &cobra.Command{
	Use:   "create PROJECT_ID NAME",
	Short: "Add a page to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		page, err := a.engine.CreatePage(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		fmt.Printf("✓ Page created: %s (ID: %s)\n", page.Name, page.ID)
		return nil
	},
}

var pageRenameCmd = &cobra.Command{
	Use:   "rename PAGE_ID NAME",
	Short: "Rename a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		page, err := a.engine.UpdatePage(cmd.Context(), args[0], types.PagePatch{Name: types.StringPtr(args[1])})
		if err != nil {
			return fmt.Errorf("failed to rename page: %w", err)
		}
		fmt.Printf("✓ Page renamed: %s\n", page.Name)
		return nil
	},
}

var pageDeleteCmd = &cobra.Command{
	Use:   "delete PAGE_ID",
	Short: "Delete a page with all its tabs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.DeletePage(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete page: %w", err)
		}
		fmt.Printf("✓ Page deleted: %s\n", args[0])
		return nil
	},
}

var pageMoveCmd = &cobra.Command{
	Use:   "move PAGE_ID PROJECT_ID",
	Short: "Move a page to the end of another project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.MovePage(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to move page: %w", err)
		}
		fmt.Printf("✓ Page moved to project %s\n", args[1])
		return nil
	},
}

var pageReorderCmd = &cobra.Command{
	Use:   "reorder PROJECT_ID PAGE_ID...",
	Short: "Set the order of the pages in a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.ReorderPages(cmd.Context(), args[0], args[1:]); err != nil {
			return fmt.Errorf("failed to reorder pages: %w", err)
		}
		fmt.Println("✓ Pages reordered")
		return nil
	},
}

func init() {
	pageCmd.AddCommand(pageCreateCmd)
	pageCmd.AddCommand(pageRenameCmd)
	pageCmd.AddCommand(pageDeleteCmd)
	pageCmd.AddCommand(pageMoveCmd)
	pageCmd.AddCommand(pageReorderCmd)
}
