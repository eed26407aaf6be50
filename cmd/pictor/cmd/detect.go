package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pictor/internal/config"
	"github.com/MeKo-Tech/pictor/internal/detector"
	"github.com/MeKo-Tech/pictor/internal/model"
	"github.com/MeKo-Tech/pictor/internal/models"
	"github.com/MeKo-Tech/pictor/internal/onnx"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect part configurations in images",
	Long: `Run part-based detection on one or more image files.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  pictor detect photo.jpg --model person.yaml
  pictor detect *.png --model person.yaml --format json
  pictor detect photo.jpg --model person.yaml --threshold -0.5 --limit 5`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

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

		detCfg := cfg.ToDetectorConfig()
		if cmd.Flags().Changed("threshold") {
			t, _ := cmd.Flags().GetFloat32("threshold")
			detCfg.Threshold = t
		}
		if cmd.Flags().Changed("limit") {
			detCfg.MaxCandidates, _ = cmd.Flags().GetInt("limit")
		}
		if cmd.Flags().Changed("workers") {
			detCfg.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("interval") {
			detCfg.Pyramid.Interval, _ = cmd.Flags().GetInt("interval")
		}
		if cmd.Flags().Changed("levels") {
			detCfg.Pyramid.Levels, _ = cmd.Flags().GetInt("levels")
		}

		format, _ := cmd.Flags().GetString("format")
		if format != outputFormatJSON && format != outputFormatText {
			return fmt.Errorf("invalid output format: %s (must be one of: %s)",
				format, strings.Join([]string{outputFormatJSON, outputFormatText}, ", "))
		}

		m, err := model.Load(modelPath)
		if err != nil {
			return err
		}

		det, cleanup, err := buildDetector(cmd, cfg, m, detCfg)
		if err != nil {
			return err
		}
		defer cleanup()

		outputFile, _ := cmd.Flags().GetString("output")
		var combined strings.Builder

		for _, path := range args {
			img, err := imaging.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}

			res, err := det.Detect(img)
			if err != nil {
				return fmt.Errorf("detecting in %s: %w", path, err)
			}

			out, err := formatResult(path, res, format)
			if err != nil {
				return err
			}

			if outputFile != "" {
				combined.WriteString(out)
			} else if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}

		if outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(combined.String()), 0o600); err != nil {
				return fmt.Errorf("writing output file: %w", err)
			}
		}
		return nil
	},
}

// buildDetector wires the configured response source into a detector. The
// returned cleanup releases the ONNX session when one was created.
func buildDetector(
	cmd *cobra.Command,
	cfg *config.Config,
	m *model.Model,
	detCfg detector.Config,
) (*detector.Detector, func(), error) {
	useONNX := cfg.ONNX.Enabled
	if cmd.Flags().Changed("onnx") {
		useONNX, _ = cmd.Flags().GetBool("onnx")
	}

	if !useONNX {
		det, err := detector.New(m, detCfg)
		return det, func() {}, err
	}

	onnxCfg := cfg.ToONNXConfig()
	if cmd.Flags().Changed("onnx-model") {
		onnxCfg.ModelPath, _ = cmd.Flags().GetString("onnx-model")
	}
	if cmd.Flags().Changed("onnx-lib") {
		onnxCfg.LibraryPath, _ = cmd.Flags().GetString("onnx-lib")
	}
	if onnxCfg.ModelPath == "" {
		return nil, nil, errors.New("onnx backbone selected but no --onnx-model given")
	}

	src, err := onnx.NewSource(onnxCfg)
	if err != nil {
		return nil, nil, err
	}
	det, err := detector.NewWithSource(m, detCfg, &detector.ONNXSource{Backbone: src})
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return det, func() { _ = src.Close() }, nil
}

// formatResult renders one image's detections in the requested format.
func formatResult(path string, res *detector.Result, format string) (string, error) {
	if format == outputFormatJSON {
		data, err := res.JSON()
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d detection(s)\n", path, len(res.Detections))
	for i, d := range res.Detections {
		fmt.Fprintf(&b, "  #%d score=%.3f scale=%d\n", i+1, d.Score, d.Scale)
		for _, p := range d.Parts {
			fmt.Fprintf(&b, "    %s at (%d,%d) mixture=%d\n", p.Name, p.X, p.Y, p.Mixture)
		}
	}
	return b.String(), nil
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringP("model", "m", "", "part model file (YAML)")
	detectCmd.Flags().Float32P("threshold", "t", 0, "minimum joint score for a detection")
	detectCmd.Flags().IntP("limit", "l", 16, "maximum number of detections to report")
	detectCmd.Flags().Int("workers", 0, "concurrent scale passes (0 = number of CPUs)")
	detectCmd.Flags().Int("interval", 5, "pyramid levels per octave")
	detectCmd.Flags().Int("levels", 10, "maximum pyramid levels")
	detectCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	detectCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	detectCmd.Flags().Bool("onnx", false, "use the ONNX heatmap backbone for part responses")
	detectCmd.Flags().String("onnx-model", "", "ONNX backbone model path")
	detectCmd.Flags().String("onnx-lib", "", "ONNX Runtime shared library path")
}
