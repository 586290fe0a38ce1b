package main

import (
	"context"
	"fmt"
	"log"
	"text/tabwriter"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/store"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/watch"
	"github.com/spf13/cobra"
)

func newCampaignsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "Manage stored campaigns",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.Store) error {
				list, err := db.List(ctx)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					log.Println("📭 No campaigns stored")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDEVICE\tREV\tUPDATED")
				for _, c := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Name, c.Device, c.Revision, c.UpdatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	})

	var name string
	importCmd := &cobra.Command{
		Use:   "import <file.json> [id]",
		Short: "Import a campaign document into the store",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := watch.ReadDocument(args[0])
			if err != nil {
				return err
			}
			id := watch.DocumentID(args[0])
			if len(args) == 2 {
				id = args[1]
			}
			if name != "" {
				doc.Name = name
			}
			return withStore(func(ctx context.Context, db *store.Store) error {
				if err := db.Save(ctx, id, doc.Name, doc.Device, doc.Elements); err != nil {
					return err
				}
				log.Printf("✅ Imported %s (%d elements)", id, len(doc.Elements))
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&name, "name", "", "Campaign name")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "export <id> <file.json>",
		Short: "Write a stored campaign to a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.Store) error {
				c, err := db.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if err := watch.WriteDocument(args[1], watch.Document{Name: c.Name, Device: c.Device, Elements: c.Elements}); err != nil {
					return err
				}
				log.Printf("✅ Wrote %s", args[1])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.Store) error {
				if err := db.Delete(ctx, args[0]); err != nil {
					return err
				}
				log.Printf("🗑️  Deleted %s", args[0])
				return nil
			})
		},
	})

	return cmd
}

func withStore(fn func(ctx context.Context, db *store.Store) error) error {
	ctx := context.Background()
	cfg := loadConfig()
	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open campaign store: %w", err)
	}
	defer db.Close()
	return fn(ctx, db)
}
