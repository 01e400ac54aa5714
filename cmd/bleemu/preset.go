package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/bleemu/config"
)

func presetFromFlag(cmd *cobra.Command) (*config.Snapshot, error) {
	name, _ := cmd.Flags().GetString("preset")
	switch name {
	case "", "default":
		return config.Default(), nil
	case "instant":
		return config.Instant(), nil
	case "slow":
		return config.Slow(), nil
	default:
		return nil, fmt.Errorf("unknown preset %q: must be default, instant, or slow", name)
	}
}
