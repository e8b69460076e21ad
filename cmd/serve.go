package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/oauth"
	"github.com/netomi/che-server/internal/server"
	"github.com/netomi/che-server/internal/token"
	"github.com/netomi/che-server/pkg/logging"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies the configuration file path.
var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OAuth broker server",
	Long: `Starts the OAuth broker HTTP server.

The broker reads its provider and storage configuration from a YAML file.
Client secrets may be given inline or as file references; secret files are
watched and reloaded when the platform rotates them.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe wires the configuration into the broker and serves until
// interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	watcher := config.NewSecretWatcher()

	callbackURL := strings.TrimSuffix(cfg.Server.PublicURL, "/") + "/oauth/callback"
	registry, err := oauth.NewRegistryFromConfig(cfg.Providers, callbackURL, watcher)
	if err != nil {
		return fmt.Errorf("failed to build provider registry: %w", err)
	}

	tokens, err := newTokenManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create token storage: %w", err)
	}

	broker := oauth.NewBroker(registry, tokens, cfg.Auth.AccessDeniedErrorPage)
	defer broker.Stop()

	srv, err := server.New(cfg.Server, broker)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(gCtx); err != nil {
			return err
		}
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	g.Go(func() error {
		if err := watcher.Start(); err != nil {
			return err
		}
		<-gCtx.Done()
		watcher.Stop()
		return nil
	})

	return g.Wait()
}

// newTokenManager creates the token storage backend from the configuration.
func newTokenManager(cfg config.Config) (token.Manager, error) {
	switch cfg.Storage.Backend {
	case config.StorageKubernetes:
		restConfig, err := ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load kubernetes configuration: %w", err)
		}
		return token.NewKubernetesManager(restConfig, cfg.Storage.Namespace)
	default:
		return token.NewMemoryManager(), nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Configuration file path")
}
