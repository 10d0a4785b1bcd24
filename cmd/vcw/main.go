package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vcw",
	Short: "vcw - workspace synchronization for structural load calculators",
	Long: `vcw keeps a local copy of a calculator workspace (projects, pages and
tabs) and synchronizes every change with the backend optimistically.

Changes are applied locally first and confirmed or rolled back once the
backend answers. Tab content is stored as the difference from its
calculator template, optionally encrypted with the session password
(set VCW_PASSWORD).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"vcw version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("backend", "", "Backend mode: http or local")
	flags.String("api-url", "", "Backend base URL for the http backend")
	flags.String("token", "", "Bearer token for the http backend")
	flags.String("data-dir", "", "Data directory for the local backend")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(tabCmd)
	rootCmd.AddCommand(serveCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the starter workspace for a new user",
	Long: `Seed an empty workspace with a first project, page and welcome tab.
An existing workspace is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		ws, err := a.engine.Initialize(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("✓ Workspace initialized")
		printTree(cmd.OutOrStdout(), ws)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the workspace tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		printTree(cmd.OutOrStdout(), a.engine.Workspace())
		return nil
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List calculator kinds and their display names",
	RunE: func(cmd *cobra.Command, args []string) error {
		printKinds(cmd.OutOrStdout())
		return nil
	},
}
