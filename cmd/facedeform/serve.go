package main

import (
	"fmt"
	"os"
	"time"

	"github.com/esimov/facedeform/server"
	"github.com/esimov/facedeform/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	port              string
	serveFetchTimeout time.Duration
	storageCfg        = store.Config{Driver: store.DriverLocal, Dir: "downloads"}
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the pipeline over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error loading .env file: %w", err)
		}
		applyEnv(cmd)

		log, err := newLogger()
		if err != nil {
			return err
		}
		pipeline, err := newPipeline(log)
		if err != nil {
			return err
		}
		st, err := store.New(storageCfg)
		if err != nil {
			return err
		}

		opts := []server.ServerOption{
			server.WithLogger(log),
			server.WithPipeline(pipeline),
			server.WithStore(st),
		}
		if serveFetchTimeout > 0 {
			opts = append(opts, server.WithFetchTimeout(serveFetchTimeout))
		}
		srv, err := server.NewServer(opts...)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context(), ":"+port)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&port, "port", "p", "3000", "HTTP port")
	f.StringVar(&storageCfg.Driver, "storage", storageCfg.Driver, "Storage driver: local or s3")
	f.StringVar(&storageCfg.Dir, "storage-dir", storageCfg.Dir, "Directory of the local storage driver")
	f.DurationVar(&serveFetchTimeout, "fetch-timeout", server.DefaultFetchTimeout, "Download timeout of the remote photos")
}

// applyEnv fills every setting whose flag has not been set explicitly from the environment.
func applyEnv(cmd *cobra.Command) {
	setString := func(flag, env string, dst *string) {
		if v := os.Getenv(env); v != "" && !cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	setString("port", "APP_PORT", &port)
	setString("cascade", "CASCADE_FILE", &cfg.CascadeFile)
	setString("storage", "STORAGE_DRIVER", &storageCfg.Driver)
	setString("storage-dir", "STORAGE_DIR", &storageCfg.Dir)
	setString("log-file", "LOG_FILE", &logFile)
	setString("log-level", "LOG_LEVEL", &logLevel)
	if !cmd.Flags().Changed("log-level") && os.Getenv("LOG_LEVEL") == "" {
		logLevel = "info"
	}

	if v := os.Getenv("FETCH_TIMEOUT"); v != "" && !cmd.Flags().Changed("fetch-timeout") {
		if d, err := time.ParseDuration(v); err == nil {
			serveFetchTimeout = d
		}
	}

	storageCfg.S3 = store.S3Config{
		Region:          os.Getenv("AWS_REGION"),
		Bucket:          os.Getenv("AWS_BUCKET_NAME"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:        os.Getenv("AWS_ENDPOINT"),
		Prefix:          os.Getenv("AWS_KEY_PREFIX"),
	}
}
