package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/group"
	"github.com/spf13/cobra"
)

func newLayersCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "layers <file.json|campaign-id>",
		Short: "Print the layer hierarchy of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayers(cmd.OutOrStdout(), args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the hierarchy as JSON")

	return cmd
}

func runLayers(w io.Writer, ref string, asJSON bool) error {
	ctx := context.Background()
	src, err := openSource(ctx, loadConfig(), ref)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := src.Elements.Validate(); err != nil {
		return err
	}
	layers := group.Hierarchy(src.Elements)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(layers)
	}
	if len(layers) == 0 {
		fmt.Fprintln(os.Stderr, "📭 No elements")
		return nil
	}
	printLayers(w, layers, 0)
	return nil
}

func printLayers(w io.Writer, layers []group.Layer, depth int) {
	for _, l := range layers {
		var flags []string
		if !l.Visible {
			flags = append(flags, "hidden")
		}
		if l.Locked {
			flags = append(flags, "locked")
		}
		line := fmt.Sprintf("%s%s  %s  z=%d", strings.Repeat("  ", depth), l.Name, l.ID, l.ZIndex)
		if len(flags) > 0 {
			line += "  (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintln(w, line)
		printLayers(w, l.Children, depth+1)
	}
}
