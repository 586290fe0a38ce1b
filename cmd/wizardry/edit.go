package main

import (
	"context"
	"fmt"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/tui"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/spf13/cobra"
)

func newEditCommand() *cobra.Command {
	var deviceName string

	cmd := &cobra.Command{
		Use:   "edit <file.json|campaign-id>",
		Short: "Edit a campaign layout in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(args[0], deviceName)
		},
	}

	cmd.Flags().StringVarP(&deviceName, "device", "d", "", "Device to open the canvas on")

	return cmd
}

func runEdit(ref, deviceName string) error {
	ctx := context.Background()
	cfg := loadConfig()

	src, err := openSource(ctx, cfg, ref)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := cfg.EditorOptions()
	opts.Device = src.Device
	if deviceName != "" {
		d, err := device.Parse(deviceName)
		if err != nil {
			return err
		}
		opts.Device = d
	}
	if opts.Device == "" {
		opts.Device = cfg.StartDevice()
	}
	opts.Snap.Canvas = opts.Devices.Dimensions(opts.Device)

	e := editor.New(opts)
	defer e.Close()
	if err := e.Load(src.Elements); err != nil {
		return fmt.Errorf("invalid campaign %s: %w", ref, err)
	}

	title := src.Name
	if title == "" {
		title = src.ID
	}
	return tui.Run(e, tui.Options{
		Title: title,
		Save: func(d device.Device, els canvas.Elements) error {
			return src.Save(ctx, d, els)
		},
	})
}
