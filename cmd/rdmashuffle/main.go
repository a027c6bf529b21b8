package main

import (
	"fmt"
	"os"
	"runtime"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/flowmesh/rdmashuffle/pkg/config"
	"github.com/flowmesh/rdmashuffle/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	var logLevel string

	root := &cobra.Command{
		Use:   "rdmashuffle",
		Short: "RDMA shuffle transport plugin tooling",
		Long: `rdmashuffle inspects the configuration of the RDMA shuffle transport plugin.
It resolves the transport tunable catalogue against a host framework
configuration and validates host framework version compatibility.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    logLevel,
				Encoding: "json",
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rdmashuffle v%s\n", version)
			fmt.Printf("Supported host major version: %d\n", config.SupportedMajorVersion)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Check command validates host framework compatibility
	checkCmd := &cobra.Command{
		Use:   "check <host-version>",
		Short: "Check host framework version compatibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := config.CheckHostVersion(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("host framework version %s is supported\n", info)
			return nil
		},
	}
	root.AddCommand(checkCmd)

	// Resolve command dumps the effective tunable catalogue
	var confFile, hostVersion string
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the transport tunable catalogue",
		Long: `Resolve reads a host framework properties file, applies the transport
plugin's type coercion, namespacing, and range validation, and prints the
effective value of every catalogued tunable as JSON. Out-of-range values
are reported alongside the defaults that replaced them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hostVersion != "" {
				if _, err := config.CheckHostVersion(hostVersion); err != nil {
					return err
				}
			}

			v := viper.New()
			if confFile != "" {
				v.SetConfigFile(confFile)
				v.SetConfigType("properties")
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read configuration: %w", err)
				}
			}

			conf := config.NewTransportConf(config.NewViperStore(v))
			defer conf.Close()

			snapshot, err := conf.Snapshot()
			if err != nil {
				return fmt.Errorf("failed to resolve configuration: %w", err)
			}

			for _, fb := range snapshot.Fallbacks {
				logger.Warn("configured tunable out of range, default in effect",
					zap.String("parameter", fb.Parameter),
					zap.String("configured", fb.Configured),
					zap.String("effective", fb.Effective))
			}

			out, err := gojson.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode snapshot: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
	resolveCmd.Flags().StringVarP(&confFile, "conf", "c", "", "Host framework properties file")
	resolveCmd.Flags().StringVar(&hostVersion, "host-version", "", "Host framework version to gate on before resolving")
	root.AddCommand(resolveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
