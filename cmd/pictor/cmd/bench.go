package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pictor/internal/common"
	"github.com/MeKo-Tech/pictor/internal/detector"
	"github.com/MeKo-Tech/pictor/internal/model"
	"github.com/MeKo-Tech/pictor/internal/models"
)

// benchCmd measures repeated detection on one image.
var benchCmd = &cobra.Command{
	Use:   "bench [image]",
	Short: "Benchmark detection on an image",
	Long: `Run detection repeatedly on one image and report timing and memory.

Examples:
  pictor bench photo.jpg --model person.yaml
  pictor bench photo.jpg --model person.yaml --iterations 50`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		modelPath := cfg.ModelPath
		if cmd.Flags().Changed("model") {
			modelPath, _ = cmd.Flags().GetString("model")
		}
		if modelPath == "" {
			return errors.New("no part model specified (use --model)")
		}
		modelsDir, _ := cmd.Flags().GetString("models-dir")
		if _, err := os.Stat(modelPath); os.IsNotExist(err) {
			modelPath = models.GetPartModelPath(modelsDir, modelPath)
		}

		iterations, _ := cmd.Flags().GetInt("iterations")

		m, err := model.Load(modelPath)
		if err != nil {
			return err
		}
		det, err := detector.New(m, cfg.ToDetectorConfig())
		if err != nil {
			return err
		}

		img, err := imaging.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}

		// Warm up allocator pools before measuring
		if _, err := det.Detect(img); err != nil {
			return err
		}

		result := common.RunBenchmark("detect", iterations, func() error {
			_, err := det.Detect(img)
			return err
		})
		if result.Error != nil {
			return result.Error
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.String())
		fmt.Fprintf(cmd.OutOrStdout(), "memory before: %s\n", result.MemoryBefore.String())
		fmt.Fprintf(cmd.OutOrStdout(), "memory after:  %s\n", result.MemoryAfter.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringP("model", "m", "", "part model file (YAML)")
	benchCmd.Flags().IntP("iterations", "n", 10, "number of detection runs")
}
