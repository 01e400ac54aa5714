package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srg/bleemu/bus"
)

var runScriptCmd = &cobra.Command{
	Use:   "run <script.lua>",
	Short: "Run a Lua scenario script against a fresh bus with the demo peripheral",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := presetFromFlag(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	b := bus.New(cfg, logger)
	defer b.Close()

	if _, err := startDemoPeripheral(b, logger); err != nil {
		return fmt.Errorf("starting demo peripheral: %w", err)
	}

	cen, console := newScriptedCentral(b, logger)
	defer console.Close()
	defer cen.Close()

	return console.RunScript(context.Background(), string(source))
}
