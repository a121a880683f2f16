// ovirtprovider - CLI tool for verifying and refreshing oVirt managers
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/agrare/foreman-providers-ovirt/configs"
)

var managersFile string
var debugLogs bool
var debugLogPath string
var keyEnv string

var rootCmd = &cobra.Command{
	Use:           "ovirtprovider",
	Short:         "Verify credentials and refresh inventory of oVirt managers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		startDebugLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&managersFile, "managers", "configs/managers.sops.yaml",
		"Path to managers file (YAML/JSON, *.sops.yaml is SOPS encrypted)")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&debugLogPath, "debug-log", configs.Defaults.Output.DebugLogPath,
		"JSON lines file receiving a copy of the --debug output")
	rootCmd.PersistentFlags().StringVar(&keyEnv, "key-env", "OVIRT_PROVIDER_KEY",
		"Environment variable holding the base64 password encryption key")

	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newFeaturesCmd())
	rootCmd.AddCommand(newManagersCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		const (
			red    = "\033[31m"
			yellow = "\033[33m"
			cyan   = "\033[36m"
			reset  = "\033[0m"
		)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nCancelled.")
		} else if ue, ok := explain(err).(*userError); ok {
			fmt.Fprintf(os.Stderr, "%sError:%s %s\n", red, reset, ue.Error())
			if hint := ue.Hint(); hint != "" {
				fmt.Fprintf(os.Stderr, "%sHint:%s %s%s%s\n", yellow, reset, cyan, hint, reset)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%sError:%s %v\n", red, reset, err)
		}
		_ = activeDebugLog.Close()
		os.Exit(1)
	}
	_ = activeDebugLog.Close()
}
