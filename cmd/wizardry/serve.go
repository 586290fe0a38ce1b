package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/config"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/live"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/store"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/watch"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var host string
	var port int
	var watchDir bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the live editing server",
		Long: `Serves live editing sessions over WebSocket at /live/<session-id>.
Sessions are seeded from the campaign store, falling back to documents in
the campaign directory, and saved back to the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watchDir
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Host to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().BoolVarP(&watchDir, "watch", "w", false, "Reload sessions when campaign documents change")

	return cmd
}

func runServe(cfg *config.Config) error {
	log.Println("🚀 Starting wizardry live server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open campaign store: %w", err)
	}
	defer db.Close()
	log.Printf("🗄️  Campaign store at %s", cfg.Store.Path)

	srv := live.NewServer(live.Options{
		Editor:         cfg.EditorOptions(),
		FrameInterval:  cfg.FrameInterval(),
		IdleTimeout:    cfg.Server.IdleTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Load: func(id string) (*live.Campaign, error) {
			return loadCampaign(ctx, db, cfg.Server.CampaignDir, id)
		},
		Save: func(id string, d device.Device, els canvas.Elements) error {
			return db.Save(ctx, id, "", d, els)
		},
	})

	if cfg.Server.Watch {
		w, err := watch.New(cfg.Server.CampaignDir, watch.DefaultDebounce, func(id string, doc watch.Document) {
			if ok, err := srv.Reload(id, doc.Elements); err != nil {
				log.Printf("⚠️  Reload of %s rejected: %v", id, err)
			} else if ok {
				log.Printf("🔄 Session %s reloaded from disk", id)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Server.CampaignDir, err)
		}
		defer w.Close()
		go w.Run(ctx)
		log.Printf("👀 Watching %s for changes", cfg.Server.CampaignDir)
	}

	addr := cfg.Addr()
	log.Printf("✨ Live server running at ws://%s%s<session-id>\n", addr, live.PathPrefix)

	// Set up graceful shutdown
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Shutting down live server...")
		cancel()
		srv.Shutdown()

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpSrv.Shutdown(shutdownCtx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadCampaign seeds a session from the store, then from <dir>/<id>.json.
// Unknown ids start an empty canvas.
func loadCampaign(ctx context.Context, db *store.Store, dir, id string) (*live.Campaign, error) {
	c, err := db.Load(ctx, id)
	if err == nil {
		return &live.Campaign{Device: c.Device, Elements: c.Elements}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	doc, err := watch.ReadDocument(filepath.Join(dir, id+watch.Ext))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &live.Campaign{Device: doc.Device, Elements: doc.Elements}, nil
}
