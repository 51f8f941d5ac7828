package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/errors"
	"github.com/vango-dev/pyfreeze/internal/metadata"
)

func initCmd(g *globalFlags) *cobra.Command {
	var (
		stem  string
		icon  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pyfreeze.json for the project",
		Long: `Create a pyfreeze.json with default settings in the project directory.

The executable stem defaults to the project name from pyproject.toml.

Examples:
  pyfreeze init
  pyfreeze init --stem=example --icon=res/icon.ico`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := g.project
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}

			path := filepath.Join(dir, config.ConfigFileName)
			if config.Exists(dir) && !force {
				return errors.New("E100").
					WithPath(path).
					WithDetail("A pyfreeze configuration already exists").
					WithSuggestion("Use --force to overwrite it")
			}

			if stem == "" {
				md, err := metadata.Load(dir)
				if err != nil {
					return err
				}
				stem = defaultStem(md.Name)
			}

			cfg := config.New()
			cfg.ExeStem = stem
			cfg.IconPath = icon
			if err := cfg.SaveTo(path); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			success(w, "Created %s", path)
			info(w, "Run 'pyfreeze build' to build %s", stem)
			return nil
		},
	}

	cmd.Flags().StringVar(&stem, "stem", "", "Executable name without suffix (default: project name)")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon file, relative to the project root")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}

// defaultStem derives an executable stem from a distribution name.
func defaultStem(name string) string {
	name = strings.TrimSpace(name)
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '-'
		}
		return r
	}, name)
}
