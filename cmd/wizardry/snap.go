package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/drag"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/spf13/cobra"
)

func newSnapCommand() *cobra.Command {
	var x, y, zoom float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "snap <file.json|campaign-id> <element-id>",
		Short: "Compute where an element snaps when moved to x,y",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnap(cmd.OutOrStdout(), args[0], args[1], x, y, zoom, asJSON)
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "Proposed logical x")
	cmd.Flags().Float64Var(&y, "y", 0, "Proposed logical y")
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "Effective zoom the tolerance adapts to")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runSnap(w io.Writer, ref, id string, x, y, zoom float64, asJSON bool) error {
	ctx := context.Background()
	cfg := loadConfig()
	src, err := openSource(ctx, cfg, ref)
	if err != nil {
		return err
	}
	defer src.Close()

	els := src.Elements
	if err := els.Validate(); err != nil {
		return err
	}
	r, ok := els.AbsoluteRect(id)
	if !ok {
		return fmt.Errorf("element %s not found", id)
	}
	if zoom <= 0 {
		return fmt.Errorf("zoom must be positive, got %v", zoom)
	}

	d := src.Device
	if d == "" {
		d = device.Reference
	}
	engine := snap.NewEngine(cfg.SnapOptions(cfg.DeviceProvider().Dimensions(d)))
	req := snap.Request{
		Rect:    canvas.Rect{X: x, Y: y, Width: r.Width, Height: r.Height},
		Targets: drag.Targets(els),
		Exclude: append([]string{id}, drag.Descendants(els, id)...),
		Zoom:    zoom,
	}
	res := engine.Snap(req)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "%s -> %g,%g\n", els.DisplayName(id), res.X, res.Y)
	if !res.Snapped(req) {
		fmt.Fprintln(w, "no snap in range")
	}
	for _, g := range res.Guides {
		line := fmt.Sprintf("  %-7s %-10s %g", g.Kind, g.Orientation, g.Position)
		if g.ElementID != "" {
			line += "  " + els.DisplayName(g.ElementID)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
