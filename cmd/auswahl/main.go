package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/codefionn/auswahl/internal/config"
	"github.com/codefionn/auswahl/internal/lockfile"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/pprof"
	"github.com/codefionn/auswahl/internal/protocol"
	"github.com/codefionn/auswahl/internal/sandbox"
	"github.com/codefionn/auswahl/internal/server"
	"github.com/codefionn/auswahl/internal/socketutil"
	"github.com/codefionn/auswahl/internal/surface"
)

// cliArgs holds the parsed command line. Empty strings mean "not set";
// numeric flags default to -1 so an explicit 0 still overrides the config
// file.
type cliArgs struct {
	listen              string
	configPath          string
	logLevel            string
	logFile             string
	registrationTimeout int
	maxConnections      int
	noLock              bool
	noSandbox           bool
	pprofAddr           string
	printConfig         bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	args, parseErr := parseCLIArgs(os.Args[1:])
	if parseErr != nil {
		if errors.Is(parseErr, flag.ErrHelp) {
			return nil
		}
		return parseErr
	}

	var loggerInitialized bool
	defer func() {
		if !loggerInitialized {
			return
		}
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	configPath := args.configPath
	if configPath == "" {
		configPath = config.GetConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyEnvOverrides(cfg)
	applyFlagOverrides(cfg, args)

	if args.printConfig {
		rendered, marshalErr := json.MarshalIndent(cfg, "", "  ")
		if marshalErr != nil {
			return fmt.Errorf("failed to render config: %w", marshalErr)
		}
		fmt.Println(string(rendered))
		return nil
	}

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", initErr)
	}
	loggerInitialized = true

	logger.Info("auswahl starting")
	logger.Debug("Configuration: listen=%s log_level=%s log_path=%s", cfg.Listen, cfg.LogLevel, cfg.LogPath)

	if !args.noLock {
		lock := lockfile.New(filepath.Join(config.StateDir(), "auswahl.lock"))
		if lockErr := lock.TryAcquire(); lockErr != nil {
			if errors.Is(lockErr, lockfile.ErrLocked) {
				return fmt.Errorf("another auswahl instance is already running (%v); use -no-lock to skip the check", lockErr)
			}
			return fmt.Errorf("failed to acquire instance lock: %w", lockErr)
		}
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				logger.Warn("Failed to release instance lock: %v", releaseErr)
			}
		}()
	}

	if sandboxErr := restrictFilesystem(cfg); sandboxErr != nil {
		logger.Warn("Filesystem sandbox failed, continuing unconfined: %v", sandboxErr)
	}

	if args.pprofAddr != "" {
		profiler := pprof.NewHandler(pprof.Config{HTTPAddr: args.pprofAddr})
		if pprofErr := profiler.Start(); pprofErr != nil {
			logger.Warn("Failed to start profiling endpoint: %v", pprofErr)
		} else {
			defer func() {
				if stopErr := profiler.Stop(); stopErr != nil {
					logger.Warn("Failed to stop profiling endpoint: %v", stopErr)
				}
			}()
		}
	}

	// Log level and UI settings apply to the running server on reload;
	// listen address and connection limits need a restart.
	var uiMu sync.Mutex
	watcher, watchErr := config.Watch(configPath, func(next *config.Config) {
		logger.SetLevel(logger.ParseLevel(next.LogLevel))
		uiMu.Lock()
		cfg.UI = next.UI
		uiMu.Unlock()
		logger.Info("Configuration reloaded from %s", configPath)
	})
	if watchErr != nil {
		logger.Warn("Config watcher unavailable: %v", watchErr)
	} else {
		defer watcher.Close()
	}

	// The picker draws on this process's terminal. Refusing to start
	// without one beats failing on every client registration later.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("auswahl renders the picker on its terminal; stdout is not a TTY")
	}

	factory := func(matcher protocol.MatcherKind, events chan<- protocol.Event) (server.Surface, error) {
		uiMu.Lock()
		uiCfg := cfg.UI
		uiMu.Unlock()
		surf, startErr := surface.Start(uiCfg, matcher, events)
		if startErr != nil {
			return nil, startErr
		}
		return surf, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, factory)
	if startErr := srv.Start(ctx); startErr != nil {
		return startErr
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	return srv.Stop()
}

func parseCLIArgs(args []string) (*cliArgs, error) {
	fs := flag.NewFlagSet("auswahl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	parsed := &cliArgs{}
	fs.StringVar(&parsed.listen, "listen", "", "Address to listen on: host:port or a unix socket path")
	fs.StringVar(&parsed.configPath, "config", "", "Path to the configuration file")
	fs.StringVar(&parsed.logLevel, "log-level", "", "Log level: debug, info, warn, error or none")
	fs.StringVar(&parsed.logFile, "log-file", "", "Path of the log file")
	fs.IntVar(&parsed.registrationTimeout, "registration-timeout", -1, "Seconds a connection may take to register; 0 waits forever")
	fs.IntVar(&parsed.maxConnections, "max-connections", -1, "Maximum concurrent client connections; 0 means unlimited")
	fs.BoolVar(&parsed.noLock, "no-lock", false, "Skip the single-instance lockfile")
	fs.BoolVar(&parsed.noSandbox, "no-sandbox", false, "Do not restrict filesystem access with Landlock")
	fs.StringVar(&parsed.pprofAddr, "pprof-addr", "", "Serve pprof profiling data on this address (e.g. localhost:6060)")
	fs.BoolVar(&parsed.printConfig, "print-config", false, "Print the effective configuration as JSON and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(fs.Output(), "auswahl serves one interactive picker at a time to local socket clients.")
		fmt.Fprintln(fs.Output(), "\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return parsed, nil
}

// applyEnvOverrides lets the environment override config file values.
// Useful for the logging knobs when auswahl runs under a session manager.
func applyEnvOverrides(cfg *config.Config) {
	if envListen := strings.TrimSpace(os.Getenv("AUSWAHL_LISTEN")); envListen != "" {
		cfg.Listen = envListen
	}
	if envLevel := strings.TrimSpace(os.Getenv("AUSWAHL_LOG_LEVEL")); envLevel != "" {
		cfg.LogLevel = envLevel
	}
	if envPath := strings.TrimSpace(os.Getenv("AUSWAHL_LOG_PATH")); envPath != "" {
		cfg.LogPath = envPath
	}
}

// applyFlagOverrides applies explicitly set command line flags on top of the
// config file and environment.
func applyFlagOverrides(cfg *config.Config, args *cliArgs) {
	if args.listen != "" {
		cfg.Listen = args.listen
	}
	if args.logLevel != "" {
		cfg.LogLevel = args.logLevel
	}
	if args.logFile != "" {
		cfg.LogPath = args.logFile
	}
	if args.registrationTimeout >= 0 {
		cfg.RegistrationTimeout = args.registrationTimeout
	}
	if args.maxConnections >= 0 {
		cfg.MaxConnections = args.maxConnections
	}
	if args.noSandbox {
		cfg.Sandbox.Disable = true
	}
}

// restrictFilesystem confines the process to the directories it actually
// touches: the config dir read-only, the state dir plus the log and socket
// directories read-write. Network access stays open for the listener.
func restrictFilesystem(cfg *config.Config) error {
	readWrite := []string{config.StateDir()}
	if cfg.LogPath != "" {
		readWrite = append(readWrite, filepath.Dir(cfg.LogPath))
	}
	if network, address, err := socketutil.ParseAddr(cfg.Listen); err == nil && network == "unix" {
		// The listener creates and removes the socket file.
		readWrite = append(readWrite, filepath.Dir(address))
	}

	sb := sandbox.NewLandlockSandbox(sandbox.Config{
		Disable:        cfg.Sandbox.Disable,
		BestEffort:     cfg.Sandbox.BestEffort,
		ReadOnlyPaths:  []string{config.ConfigDir()},
		ReadWritePaths: readWrite,
	})
	return sb.Restrict()
}
