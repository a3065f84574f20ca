package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenesync/core/internal/editorstore"
	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/transport/wsrelay"
	"github.com/scenesync/core/pkg/config"
	"github.com/scenesync/core/pkg/corehost"
	"github.com/scenesync/core/pkg/metrics"
)

var hostUsername string

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a new scene editing session",
	Long: `Host starts a new session, listening for wsrelay joiners at the
configured network.listen_addr, and serves /metrics and /healthz at
admin.listen_addr if admin.enabled is set.`,
	RunE: runHost,
}

func init() {
	hostCmd.Flags().StringVar(&hostUsername, "username", "host", "display name for the hosting participant")
}

func runHost(cmd *cobra.Command, args []string) error {
	logx.Init()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	relay := wsrelay.NewHost()
	store := editorstore.NewMemStore()
	core, err := corehost.Host(cfg, relay, store, hostUsername, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("start host: %w", err)
	}
	defer core.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", relay)

	var adminSrv *http.Server
	if cfg.Admin.Enabled {
		adminSrv = &http.Server{Addr: cfg.Admin.ListenAddr, Handler: metrics.NewRouter(core.Metrics)}
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Error("scenesyncd: admin listen: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: cfg.Network.ListenAddr, Handler: mux}
	go func() {
		logx.Info("scenesyncd: hosting %q on %s (ws at /ws)", cfg.Session.Name, cfg.Network.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("scenesyncd: listen: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logx.Info("scenesyncd: shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		if adminSrv != nil {
			adminSrv.Shutdown(shutdownCtx)
		}
	}()

	return core.Run(ctx)
}
