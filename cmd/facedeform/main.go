package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/esimov/facedeform"
	"github.com/esimov/facedeform/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌┬┐┌─┐┌─┐┌─┐┬─┐┌┬┐
├┤ ├─┤│  ├┤  ││├┤ ├┤ │ │├┬┘│││
└  ┴ ┴└─┘└─┘─┴┘└─┘└  └─┘┴└─┴ ┴

Face detection, cropping and deformation.
    Version: %s
`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version = "dev"

var (
	cfg      = facedeform.DefaultConfig()
	variant  string
	format   string
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:           "facedeform",
	Short:         "Detect, crop and deform the face found in a photo",
	Long:          fmt.Sprintf(HelpBanner, Version),
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg.Variant = facedeform.StyleVariant(variant)
		cfg.ArtifactFormat = facedeform.Format(format)
		return cfg.Validate()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfg.CascadeFile, "cascade", "c", "data/facefinder", "Cascade classifier file")
	f.Float64Var(&cfg.ScaleFactor, "scale-factor", cfg.ScaleFactor, "Detection window growth factor between passes")
	f.Float64Var(&cfg.ShiftFactor, "shift-factor", cfg.ShiftFactor, "Detection window shift, relative to its size")
	f.IntVar(&cfg.MinSize, "min-size", cfg.MinSize, "Minimum face size in pixels")
	f.IntVar(&cfg.MaxSize, "max-size", cfg.MaxSize, "Maximum face size in pixels (0 means the shorter image side)")
	f.IntVar(&cfg.MinNeighbors, "min-neighbors", cfg.MinNeighbors, "Candidate windows required to confirm a face")
	f.Float64Var(&cfg.IoUThreshold, "iou", cfg.IoUThreshold, "Intersection over union threshold used to group the candidates")
	f.Float64Var(&cfg.FaceAngle, "angle", cfg.FaceAngle, "Plane rotated faces angle")
	f.Float64Var(&cfg.PaddingRatio, "padding", cfg.PaddingRatio, "Crop padding, relative to the face height")
	f.StringVar(&variant, "variant", string(cfg.Variant), "Stylization variant: enlarge or frame")
	f.IntVar(&cfg.Margin, "margin", cfg.Margin, "Canvas margin in pixels")
	f.Float64Var(&cfg.SharpenAmount, "sharpen", cfg.SharpenAmount, "Unsharp mask weight of the frame variant")
	f.StringVar(&format, "format", string(cfg.ArtifactFormat), "Artifact encoding: png, jpg or bmp")
	f.BoolVar(&cfg.DebugBoxes, "debug-boxes", false, "Store the source image with the detected faces outlined")
	f.StringVar(&logLevel, "log-level", "warn", "Log level")
	f.StringVar(&logFile, "log-file", "", "Rotated log file")

	rootCmd.AddCommand(runCmd, serveCmd)
}

// newPipeline loads the cascade and assembles the pipeline from the parsed flags.
func newPipeline(log logrus.FieldLogger) (*facedeform.Pipeline, error) {
	locator, err := facedeform.NewPigoLocatorFromFile(cfg, log)
	if err != nil {
		return nil, err
	}
	return facedeform.NewPipeline(cfg, locator, facedeform.WithLogger(log))
}

func newLogger() (*logrus.Logger, error) {
	return logger.New(logger.Options{
		Level: logLevel,
		File:  logFile,
	})
}

func main() {
	// Capture CTRL-C signal and cancel the running command.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
