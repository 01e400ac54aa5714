// Command bleemu drives an in-process EmulatorBus from a terminal: scan for
// demo peripherals, connect, read/write characteristics, and drop into a
// Lua scripting console — the same set of operations cmd/blim exposed
// against a real adapter, here aimed at the bus instead of hardware.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "bleemu",
	Short: "In-process BLE central/peripheral emulator",
	Long: `bleemu drives an EmulatorBus from the command line:

- scan/connect/read/write against in-process demo peripherals
- run Lua scenario scripts against a live bus
- drop into an interactive scripting console

Nothing here talks to real Bluetooth hardware; every command operates on
an in-memory bus.Bus started for the lifetime of the process.`,
	Version: version,
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("preset", "default", "Timing preset (default, instant, slow)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(runScriptCmd)
	rootCmd.AddCommand(consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}
