package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pictor/internal/model"
	"github.com/MeKo-Tech/pictor/internal/models"
)

// modelCmd groups part-model inspection subcommands.
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect part model files",
}

// modelInfoCmd prints a summary of one part model.
var modelInfoCmd = &cobra.Command{
	Use:          "info [model file]",
	Short:        "Show the structure of a part model",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		modelsDir, _ := cmd.Flags().GetString("models-dir")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = models.GetPartModelPath(modelsDir, path)
		}

		m, err := model.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Model: %s\n", m.Name)
		fmt.Fprintf(out, "Parts: %d, mixtures per part: %d\n", m.NParts(), m.NMixtures)
		fmt.Fprintf(out, "Appearance filters: %v\n", m.HasFilters())
		for _, p := range m.Parts {
			if p.Parent < 0 {
				fmt.Fprintf(out, "  %s (root)\n", p.Name)
				continue
			}
			fmt.Fprintf(out, "  %s -> parent %s, anchor (%d,%d)\n",
				p.Name, m.Parts[p.Parent].Name, p.Anchor.X, p.Anchor.Y)
		}
		return nil
	},
}

// modelListCmd lists model files in the models directory.
var modelListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List part model files in the models directory",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		modelsDir, _ := cmd.Flags().GetString("models-dir")
		files, err := models.ListModelFiles(modelsDir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

// modelValidateCmd checks that a model file loads and validates.
var modelValidateCmd = &cobra.Command{
	Use:          "validate [model file]",
	Short:        "Validate a part model file",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); os.IsNotExist(err) {
			return errors.New("model file does not exist: " + args[0])
		}
		if _, err := model.Load(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelInfoCmd)
	modelCmd.AddCommand(modelListCmd)
	modelCmd.AddCommand(modelValidateCmd)
}
