package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/export"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	var output string
	var deviceName string
	var scale float64
	var grid bool
	var labels bool

	cmd := &cobra.Command{
		Use:   "export <file.json|campaign-id>",
		Short: "Render a campaign layout to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			opts := export.Options{
				Scale:      cfg.Export.Scale,
				Background: cfg.Export.Background,
				Grid:       cfg.Export.Grid,
				GridSize:   cfg.Snap.GridSize,
				Labels:     labels,
			}
			if cmd.Flags().Changed("scale") {
				opts.Scale = scale
			}
			if cmd.Flags().Changed("grid") {
				opts.Grid = grid
			}

			ctx := context.Background()
			src, err := openSource(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			d := src.Device
			if deviceName != "" {
				if d, err = device.Parse(deviceName); err != nil {
					return err
				}
			}
			if d == "" {
				d = device.Reference
			}
			if output == "" {
				output = fmt.Sprintf("%s-%s.png", strings.TrimSuffix(src.ID, ".json"), d)
			}

			log.Printf("🎨 Rendering %s (%s, %d elements)...", src.ID, d, len(src.Elements))
			if err := export.SavePNG(output, src.Elements, cfg.DeviceProvider().Dimensions(d), opts); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			log.Printf("✅ Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <id>-<device>.png)")
	cmd.Flags().StringVarP(&deviceName, "device", "d", "", "Device canvas to render")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Output pixels per logical unit")
	cmd.Flags().BoolVar(&grid, "grid", false, "Draw the snap grid")
	cmd.Flags().BoolVar(&labels, "labels", false, "Draw element names")

	return cmd
}
