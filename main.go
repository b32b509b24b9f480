package main

import (
	"context"
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/MJE43/mines-desktop-go/bindings"
	"github.com/MJE43/mines-desktop-go/internal/ctrlhttp"
	"github.com/MJE43/mines-desktop-go/internal/round"
	"github.com/MJE43/mines-desktop-go/internal/store"
	"github.com/MJE43/mines-desktop-go/internal/table"
)

//go:embed all:frontend/dist
var assets embed.FS

const (
	appConfigDirName = "mines-desktop-go"
	walletDBName     = "wallet.db"
)

func main() {
	log.Printf("Starting Mines Desktop (Go %s)...", runtime.Version())

	db, err := store.NewSQLiteDB(defaultWalletDBPath())
	if err != nil {
		log.Fatalf("wallet store init failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("wallet store migrate failed: %v", err)
	}

	tbl, err := table.NewModule(round.DefaultConfig(), db)
	if err != nil {
		log.Fatalf("table init failed: %v", err)
	}

	game := bindings.NewGameModule(tbl)
	script := bindings.NewScriptModule(tbl)

	// Optional loopback control API for external bots.
	ctrl := ctrlhttp.New(tbl, envInt("MINES_CTRL_PORT", 17889), os.Getenv("MINES_CTRL_TOKEN"))
	ctrlEnabled := os.Getenv("MINES_CTRL_DISABLE") == ""

	startup := func(ctx context.Context) {
		game.Startup(ctx)
		script.Startup(ctx)

		if ctrlEnabled {
			if err := ctrl.Start(); err != nil {
				log.Printf("control API failed to start: %v", err)
			}
		}
	}

	beforeClose := func(ctx context.Context) (prevent bool) {
		script.Shutdown()

		if ctrlEnabled {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := ctrl.Shutdown(shutdownCtx); err != nil {
				log.Printf("control API shutdown error: %v", err)
			}
		}

		if err := tbl.Shutdown(); err != nil {
			log.Printf("wallet persist error on close: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("wallet store close error: %v", err)
		}
		log.Println("Application is closing")
		return false
	}

	if err := wails.Run(&options.App{
		Title:            "Mines",
		Width:            1100,
		Height:           760,
		MinWidth:         900,
		MinHeight:        640,
		WindowStartState: options.Normal,
		BackgroundColour: &options.RGBA{R: 15, G: 23, B: 42, A: 255},

		AssetServer: &assetserver.Options{
			Assets: assets,
		},

		OnStartup:     startup,
		OnBeforeClose: beforeClose,
		OnShutdown: func(ctx context.Context) {
			log.Println("Application shutdown complete")
		},

		Bind: []interface{}{game, script},

		LogLevel:           logger.INFO,
		LogLevelProduction: logger.ERROR,

		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "8b1f0c2d-5a43-4f1e-9d27-mines-desktop",
			OnSecondInstanceLaunch: func(data options.SecondInstanceData) {
				log.Printf("Second instance launch prevented. Args: %v", data.Args)
			},
		},
	}); err != nil {
		log.Printf("Error running Wails app: %v", err)
		panic(err)
	}

	log.Println("Application exited normally")
}

// defaultWalletDBPath returns the wallet file inside an OS-appropriate
// writable directory, falling back to the working directory.
func defaultWalletDBPath() string {
	base := appDataDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		log.Printf("appdata mkdir failed: %v; using working directory", err)
		return filepath.Join(".", walletDBName)
	}
	return filepath.Join(base, walletDBName)
}

// appDataDir returns an OS-appropriate writable directory.
func appDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}

func envInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		var v int
		if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
			return v
		}
	}
	return def
}
