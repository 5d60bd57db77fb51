package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/beaconchurch/beacon/internal/client/app"
	"github.com/beaconchurch/beacon/internal/client/config"
	"github.com/beaconchurch/beacon/internal/client/connectivity"
	"github.com/beaconchurch/beacon/internal/logging"
)

type App struct {
	config *config.Config
	core   *app.App
	log    logging.Logger
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	core, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: cfg, core: core, log: logger}, nil
}

// Run starts the background core and the interactive loop. It returns when
// the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.core.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.core.Run(ctx)

	unsubscribe := a.core.SubscribeConnectivity(func(s connectivity.Status) {
		if s.Online {
			fmt.Println("Switched to online mode")
		} else {
			fmt.Println("Switched to offline mode")
		}
	})
	defer unsubscribe()

	fmt.Println("Beacon client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) getStatus() string {
	mode := "offline"
	if a.core.Connectivity().Online {
		mode = "online"
	}
	if n := a.core.PendingEvents(); n > 0 {
		return fmt.Sprintf("(%s, %d queued)", mode, n)
	}
	return fmt.Sprintf("(%s)", mode)
}
