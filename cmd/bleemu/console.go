package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/bleemu/bus"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive Lua console bound to a fresh bus and demo peripheral",
	RunE:  runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := presetFromFlag(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	b := bus.New(cfg, logger)
	defer b.Close()

	if _, err := startDemoPeripheral(b, logger); err != nil {
		return fmt.Errorf("starting demo peripheral: %w", err)
	}

	cen, console := newScriptedCentral(b, logger)
	defer console.Close()
	defer cen.Close()

	prompt := color.New(color.FgCyan, color.Bold)
	errColor := color.New(color.FgRed)

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	fmt.Println("bleemu console: type Lua (ble.scan, ble.connect, ble.discover, ble.read, ble.write, ble.notify). Ctrl-D to exit.")
	for {
		prompt.Fprint(os.Stdout, "bleemu> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := console.RunScript(ctx, line); err != nil {
			errColor.Fprintln(os.Stderr, err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
