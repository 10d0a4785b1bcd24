package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// Project commands
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		project, err := a.engine.CreateProject(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		fmt.Printf("✓ Project created: %s (ID: %s)\n", project.Name, project.ID)
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename PROJECT_ID NAME",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		project, err := a.engine.UpdateProject(cmd.Context(), args[0], types.ProjectPatch{Name: types.StringPtr(args[1])})
		if err != nil {
			return fmt.Errorf("failed to rename project: %w", err)
		}
		fmt.Printf("✓ Project renamed: %s\n", project.Name)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete PROJECT_ID",
	Short: "Delete a project with all its pages and tabs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.DeleteProject(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		fmt.Printf("✓ Project deleted: %s\n", args[0])
		return nil
	},
}

var projectReorderCmd = &cobra.Command{
	Use:   "reorder PROJECT_ID...",
	Short: "Set the order of all projects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.ReorderProjects(cmd.Context(), args); err != nil {
			return fmt.Errorf("failed to reorder projects: %w", err)
		}
		fmt.Println("✓ Projects reordered")
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectReorderCmd)
}
