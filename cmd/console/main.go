package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/ankuaru/bidconsole/internal/auction"
	"github.com/ankuaru/bidconsole/internal/bidder"
	"github.com/ankuaru/bidconsole/internal/config"
	"github.com/ankuaru/bidconsole/internal/gateway"
	"github.com/ankuaru/bidconsole/internal/handler"
	"github.com/ankuaru/bidconsole/internal/notify"
	"github.com/ankuaru/bidconsole/internal/session"
	"github.com/ankuaru/bidconsole/internal/store"
	"github.com/ankuaru/bidconsole/internal/ws"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		addrFlag    = flag.String("addr", "", "Address to listen on (overrides CONSOLE_ADDR env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`bidconsole - sealed-bid auction console

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --addr ADDR     Address to listen on (default: :8080 or CONSOLE_ADDR env var)

Environment Variables:
  CONSOLE_ADDR    Address to listen on (default: :8080)
  API_BASE_URL    Marketplace API base URL (default: https://testauction.ankuaru.com)
  STATE_DIR       Directory for bid secrets and session (default: ~/.bidconsole)
  POLL_INTERVAL   Status/notification poll interval, e.g. 15s (default: 30s)
  LOG_LEVEL       zerolog level: debug, info, warn, error (default: info)

Examples:
  %s                    Start the console with default settings
  %s --addr :3000       Start the console on port 3000

Visit http://localhost:8080 after starting the console.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("bidconsole %s\n", version)
		return
	}

	// Config
	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	logger := zerologlog.Logger

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		logger.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Local state and remote gateway
	st, err := store.New(cfg.StateDir)
	if err != nil {
		log.Fatal(err)
	}
	sess := session.Load(cfg.StateDir)
	gw := gateway.New(cfg.APIBaseURL, sess, logger.With().Str("component", "gateway").Logger())
	bd := bidder.New(gw, st, sess, logger.With().Str("component", "bidder").Logger())

	// REST surface
	h := handler.New(gw, bd, sess, logger.With().Str("component", "handler").Logger())
	h.Register(r)

	// Socket server for live countdowns
	sock := ws.New(gw, bd, cfg.PollInterval, logger.With().Str("component", "ws").Logger())
	io := sock.Mount(r)
	defer io.Close()

	// Notification watcher; new items are pushed to every socket client
	watcher := notify.New(gw, cfg.PollInterval, logger.With().Str("component", "notify").Logger(), func(items []auction.Notification) {
		io.BroadcastToNamespace("/", "notification:new", items)
	})
	watcher.Start()
	defer watcher.Stop()

	log.Printf("listening on %s (api: %s)", cfg.Addr, cfg.APIBaseURL)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}
