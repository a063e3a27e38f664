package main

import (
	"runtime"
	"time"

	"github.com/esimov/facedeform"
	"github.com/esimov/facedeform/store"
	"github.com/spf13/cobra"
)

var (
	destination  string
	workers      int
	fetchTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <source>",
	Short: "Process a local image, a directory, an URL or stdin (-)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		pipeline, err := newPipeline(log)
		if err != nil {
			return err
		}

		op := &facedeform.Ops{
			Src:          args[0],
			PipeName:     pipeName,
			Workers:      workers,
			FetchTimeout: fetchTimeout,
			Stdout:       cmd.OutOrStdout(),
			Stderr:       cmd.ErrOrStderr(),
		}
		if destination != pipeName {
			st, err := store.NewFileStore(destination)
			if err != nil {
				return err
			}
			op.Store = st
		}

		_, err = pipeline.Execute(cmd.Context(), op)
		return err
	},
}

func init() {
	runCmd.Flags().StringVarP(&destination, "out", "o", "output", "Destination directory, or - to write the deformed image to stdout")
	runCmd.Flags().IntVar(&workers, "conc", runtime.NumCPU(), "Number of files to process concurrently")
	runCmd.Flags().DurationVar(&fetchTimeout, "timeout", 15*time.Second, "Download timeout of remote images")
}
