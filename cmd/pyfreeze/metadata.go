package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/metadata"
)

func metadataCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Print the project metadata read from pyproject.toml",
		Long: `Print the metadata pyfreeze embeds into the executable.

Examples:
  pyfreeze metadata
  pyfreeze metadata --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(g)
			if err != nil {
				return err
			}
			md, err := metadata.Load(root)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(md)
			}

			fmt.Fprintf(w, "  Name:         %s\n", md.Name)
			fmt.Fprintf(w, "  Display name: %s\n", md.DisplayName)
			fmt.Fprintf(w, "  Version:      %s\n", md.Version)
			fmt.Fprintf(w, "  File version: %s\n", md.FileVersion)
			if md.Author != "" {
				fmt.Fprintf(w, "  Author:       %s\n", md.Author)
			}
			if md.License != "" {
				fmt.Fprintf(w, "  License:      %s\n", md.License)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}

// projectRoot returns the project root selected by the global flags. Without
// --project it is the nearest directory with a pyfreeze config, or the
// working directory if there is none.
func projectRoot(g *globalFlags) (string, error) {
	if g.project != "" {
		if config.Exists(g.project) {
			cfg, err := config.Load(g.project)
			if err != nil {
				return "", err
			}
			return cfg.ProjectRoot, nil
		}
		return g.project, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if dir, err := config.FindProjectRoot(wd); err == nil {
		cfg, err := config.Load(dir)
		if err != nil {
			return "", err
		}
		return cfg.ProjectRoot, nil
	}
	return wd, nil
}
