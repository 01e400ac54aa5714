package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/central"
	"github.com/srg/bleemu/remote"
)

var scanDuration time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for demo peripherals on an in-process bus",
	Long: `Starts a bus with a small built-in demo peripheral, scans for
the configured duration, and prints every discovered peripheral.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 2*time.Second, "Scan duration")
}

func runScan(cmd *cobra.Command, args []string) error {
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

	var discovered []*remote.Peripheral
	cen := central.New(b, central.WithLogger(logger), central.WithDelegate(&scanDelegate{out: &discovered}))
	defer cen.Close()

	cen.ScanForPeripherals(nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), scanDuration)
	defer cancel()
	<-ctx.Done()
	cen.StopScan()

	return printDiscovered(discovered)
}

type scanDelegate struct {
	central.NoopDelegate
	out *[]*remote.Peripheral
}

func (d *scanDelegate) DidDiscover(p *remote.Peripheral, adv attr.Record, rssi int) {
	*d.out = append(*d.out, p)
}

func printDiscovered(peers []*remote.Peripheral) error {
	bold := color.New(color.Bold)
	if len(peers) == 0 {
		bold.Fprintln(os.Stdout, "No peripherals discovered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	bold.Fprintln(w, "ID\tNAME\tRSSI")
	for _, p := range peers {
		fmt.Fprintf(w, "%s\t%s\t%d dBm\n", p.ID(), p.Name(), p.RSSI())
	}
	return w.Flush()
}
