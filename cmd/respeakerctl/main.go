// respeakerctl - ReSpeaker Mic Array v2.0 control tool
//
// respeakerctl talks to the array's XMOS XVF-3000 DSP over USB vendor
// control transfers. It can inspect and tune the firmware's processing
// parameters, record telemetry to CSV, apply saved presets, and run as
// a daemon exposing the device over HTTP, WebSocket and MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/brookman/respeaker-go/internal/api"
	"github.com/brookman/respeaker-go/internal/device"
	"github.com/brookman/respeaker-go/internal/infrastructure/config"
	"github.com/brookman/respeaker-go/internal/infrastructure/database"
	"github.com/brookman/respeaker-go/internal/infrastructure/influxdb"
	"github.com/brookman/respeaker-go/internal/infrastructure/logging"
	"github.com/brookman/respeaker-go/internal/infrastructure/mqtt"
	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/preset"
	"github.com/brookman/respeaker-go/internal/protocol"
	"github.com/brookman/respeaker-go/internal/recorder"
	"github.com/brookman/respeaker-go/internal/shell"
	"github.com/brookman/respeaker-go/internal/state"
	"github.com/brookman/respeaker-go/internal/telemetry"
	"github.com/brookman/respeaker-go/internal/usb"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// defaultConfigPath is used when no -config flag or RESPEAKER_CONFIG
// variable is given and the file exists.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, args []string) error {
	// A malformed registry entry is a build defect; refuse to touch the
	// device with one.
	if err := param.Validate(); err != nil {
		return fmt.Errorf("parameter registry: %w", err)
	}

	fs := flag.NewFlagSet("respeakerctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML configuration file")
	devIndex := fs.Int("i", -1, "device index when several arrays are attached")
	fs.Usage = func() { printUsage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs)
		return fmt.Errorf("missing command")
	}
	cmd := strings.ToLower(rest[0])
	cmdArgs := rest[1:]

	if cmd == "help" {
		printUsage(fs)
		return nil
	}

	cfg, err := loadConfig(resolveConfigPath(*configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *devIndex >= 0 {
		cfg.Device.Index = *devIndex
	}

	log := logging.New(cfg.Logging, version)

	switch cmd {
	case "list":
		return cmdList(cfg, log)
	case "read":
		return cmdRead(cfg, log, cmdArgs)
	case "write":
		return cmdWrite(cfg, log, cmdArgs)
	case "reset":
		return cmdReset(cfg, log)
	case "record":
		return cmdRecord(ctx, cfg, log, cmdArgs)
	case "shell":
		return cmdShell(ctx, cfg, log)
	case "serve":
		return cmdServe(ctx, cfg, log)
	case "preset":
		return cmdPreset(ctx, cfg, log, cmdArgs)
	default:
		printUsage(fs)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `respeakerctl %s - ReSpeaker Mic Array v2.0 control tool

Usage: respeakerctl [flags] <command> [args]

Commands:
  list                       Show all parameters and current values
  read <param>               Read one parameter
  write <param> <value>      Write one parameter
  reset                      Reboot the array
  record [duration]          Record telemetry to CSV (until ^C or for duration)
  shell                      Interactive tuning console
  serve                      Run as a daemon (HTTP/WebSocket/MQTT)
  preset save <name> [desc]  Capture current writable values as a preset
  preset apply <name>        Apply a saved preset
  preset list                List saved presets
  preset delete <name>       Delete a preset
  help                       Show this help

Flags:
`, version)
	fs.PrintDefaults()
}

// resolveConfigPath picks the configuration source: the -config flag,
// then RESPEAKER_CONFIG, then the default path if it exists. An empty
// result means built-in defaults.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("RESPEAKER_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// loadConfig loads the file at path, or the built-in defaults when path
// is empty. The CLI must work on a bare host with no config file.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openSession opens the USB transport and wraps it in a session.
// The returned cleanup closes both.
func openSession(cfg *config.Config, log *logging.Logger) (*device.Session, func(), error) {
	dev, err := usb.Open(cfg.Device.Index, cfg.TransferTimeout())
	if err != nil {
		return nil, nil, fmt.Errorf("opening device: %w", err)
	}

	sess := device.NewSession(dev, device.Config{SettleTime: cfg.SettleTime()})
	sess.SetLogger(log)

	cleanup := func() {
		if err := sess.Close(); err != nil {
			log.Error("error closing device", "error", err)
		}
	}
	return sess, cleanup, nil
}

// cmdList prints every parameter as a table.
func cmdList(cfg *config.Config, log *logging.Logger) error {
	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	rows, err := sess.List()
	if err != nil {
		return fmt.Errorf("reading parameters: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE\tTYPE\tACCESS\tRANGE\tDESCRIPTION")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Kind, row.Value, row.Definition.Type, row.Definition.Access,
			formatRange(row.Definition), row.Definition.Description)
	}
	return tw.Flush()
}

// cmdRead reads and prints one parameter.
func cmdRead(cfg *config.Config, log *logging.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: read <param>")
	}
	k, err := param.KindFromString(args[0])
	if err != nil {
		return err
	}

	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	v, err := sess.Read(k)
	if err != nil {
		return fmt.Errorf("reading %s: %w", k, err)
	}
	fmt.Printf("%s = %s\n", k, v)
	return nil
}

// cmdWrite writes one parameter.
func cmdWrite(cfg *config.Config, log *logging.Logger, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: write <param> <value>")
	}
	k, err := param.KindFromString(args[0])
	if err != nil {
		return err
	}
	v, err := param.Parse(k, args[1])
	if err != nil {
		return err
	}

	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Write(k, v); err != nil {
		return fmt.Errorf("writing %s: %w", k, err)
	}
	fmt.Printf("%s = %s\n", k, v)
	return nil
}

// cmdReset reboots the array and waits for it to come back.
func cmdReset(cfg *config.Config, log *logging.Logger) error {
	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Resetting device...")
	if err := sess.Reset(); err != nil {
		return fmt.Errorf("resetting device: %w", err)
	}
	fmt.Println("Device is back")
	return nil
}

// cmdRecord samples telemetry to a CSV file until the context is
// cancelled or the optional duration elapses.
func cmdRecord(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string) error {
	if len(args) >= 1 {
		duration, err := time.ParseDuration(args[0])
		if err != nil || duration <= 0 {
			return fmt.Errorf("invalid duration: %q", args[0])
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Prime the cache so the first rows carry every parameter.
	if _, err := sess.List(); err != nil {
		return fmt.Errorf("priming parameter cache: %w", err)
	}

	rec, err := recorder.New(cfg.Recording.Dir, sess.Cache(), cfg.RecordInterval())
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	rec.SetLogger(log)

	// Optional MQTT/InfluxDB sinks run beside the CSV.
	pub, _, pubCleanup, err := setupTelemetry(cfg, log)
	if err != nil {
		return err
	}
	defer pubCleanup()

	reconciler := state.NewReconciler(sess, sess.Cache(), cfg.RecordInterval())
	reconciler.SetLogger(log)
	if pub != nil {
		cache := sess.Cache()
		reconciler.SetObserver(func(map[param.Kind]param.Value) {
			pub.Publish(cache.Snapshot())
		})
	}
	go reconciler.Run(ctx)

	fmt.Printf("Recording to %s (session %s), press Ctrl+C to stop\n", rec.Path(), rec.ID())
	if err := rec.Run(ctx); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	fmt.Printf("Recording saved: %s\n", rec.Path())
	return nil
}

// cmdShell runs the interactive tuning console with a background
// reconciler propagating edits.
func cmdShell(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := sess.List(); err != nil {
		return fmt.Errorf("priming parameter cache: %w", err)
	}

	shCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reconciler := state.NewReconciler(sess, sess.Cache(), cfg.PollInterval())
	reconciler.SetLogger(log)
	go reconciler.Run(shCtx)

	sh, err := shell.New(sess.Cache(), sess)
	if err != nil {
		return err
	}
	sh.Run(shCtx, cancel)
	return nil
}

// cmdServe runs the daemon: reconciler, HTTP API, WebSocket hub, and
// the optional MQTT/InfluxDB bridges.
func cmdServe(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	log.Info("starting respeaker daemon",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := sess.List(); err != nil {
		return fmt.Errorf("priming parameter cache: %w", err)
	}
	log.Info("device session open", "params", sess.Cache().Len())

	// Preset store
	db, err := database.Open(database.Config{
		Path:        cfg.Presets.Path,
		WALMode:     cfg.Presets.WALMode,
		BusyTimeout: cfg.Presets.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening preset store: %w", err)
	}
	defer func() {
		log.Info("closing preset store")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing preset store", "error", closeErr)
		}
	}()
	presets, err := preset.NewSQLiteRepository(ctx, db)
	if err != nil {
		return fmt.Errorf("initialising preset store: %w", err)
	}
	log.Info("preset store ready", "path", cfg.Presets.Path)

	// WebSocket hub is shared between the API server and the reconciler.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Optional MQTT/InfluxDB bridges.
	pub, mqttClient, pubCleanup, err := setupTelemetry(cfg, log)
	if err != nil {
		return err
	}
	defer pubCleanup()

	// Reconciler: keeps telemetry fresh and pushes cache edits from the
	// API, shell and MQTT commands to the hardware.
	cache := sess.Cache()
	reconciler := state.NewReconciler(sess, cache, cfg.PollInterval())
	reconciler.SetLogger(log)
	reconciler.SetObserver(func(readonly map[param.Kind]param.Value) {
		hub.BroadcastTelemetry(readonly)
		if pub != nil {
			pub.Publish(cache.Snapshot())
		}
	})
	go reconciler.Run(ctx)

	// Inbound MQTT commands land in the cache and propagate on the next
	// tick, the same path the API and shell use.
	if mqttClient != nil {
		sink := cacheSink{cache: cache, sess: sess}
		if err := telemetry.ListenCommands(mqttClient, sink, byte(cfg.MQTT.QoS)); err != nil {
			return fmt.Errorf("subscribing to command topics: %w", err)
		}
		log.Info("MQTT command topics subscribed")
	}

	// HTTP API
	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Device:      sess,
			Cache:       cache,
			Presets:     presets,
			Adopter:     reconciler,
			ExternalHub: hub,
			Version:     version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server listening", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("respeaker daemon stopped")
	return nil
}

// cacheSink routes MQTT set commands into the shared cache after local
// validation, and reset commands straight to the session.
type cacheSink struct {
	cache *state.Cache
	sess  *device.Session
}

func (s cacheSink) Set(k param.Kind, v param.Value) error {
	if err := protocol.ValidateWrite(k, v); err != nil {
		return err
	}
	s.cache.Set(k, v)
	return nil
}

func (s cacheSink) Reset() error { return s.sess.Reset() }

// setupTelemetry connects the optional MQTT and InfluxDB sinks and
// builds the publisher over them. Returns a nil publisher when neither
// is enabled. MQTT also carries inbound set/reset commands.
func setupTelemetry(cfg *config.Config, log *logging.Logger) (*telemetry.Publisher, *mqtt.Client, func(), error) {
	var (
		mqttClient   *mqtt.Client
		influxClient *influxdb.Client
	)
	cleanup := func() {
		if mqttClient != nil {
			log.Info("disconnecting from MQTT")
			if err := mqttClient.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		}
		if influxClient != nil {
			log.Info("closing InfluxDB connection")
			if err := influxClient.Close(); err != nil {
				log.Error("error closing InfluxDB", "error", err)
			}
		}
	}

	if cfg.MQTT.Enabled {
		var err error
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, nil, func() {}, fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		var err error
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			cleanup()
			return nil, nil, func() {}, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if mqttClient == nil && influxClient == nil {
		return nil, nil, cleanup, nil
	}

	// Interface conversions stay conditional so a disabled sink is a
	// true nil inside the publisher.
	var m telemetry.MessagePublisher
	if mqttClient != nil {
		m = mqttClient
	}
	var i telemetry.SampleWriter
	if influxClient != nil {
		i = influxClient
	}
	pub := telemetry.NewPublisher(m, i)
	pub.SetLogger(log)
	return pub, mqttClient, cleanup, nil
}

// formatRange renders the value domain for tables.
func formatRange(def param.Definition) string {
	if def.Type == param.FloatRange {
		return fmt.Sprintf("%g..%g", def.Min, def.Max)
	}
	return fmt.Sprintf("%d..%d", int(def.Min), int(def.Max))
}

// cmdPreset dispatches the preset subcommands.
func cmdPreset(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: preset <save|apply|list|delete> [args]")
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Presets.Path,
		WALMode:     cfg.Presets.WALMode,
		BusyTimeout: cfg.Presets.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening preset store: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing preset store", "error", closeErr)
		}
	}()
	repo, err := preset.NewSQLiteRepository(ctx, db)
	if err != nil {
		return fmt.Errorf("initialising preset store: %w", err)
	}

	switch strings.ToLower(args[0]) {
	case "save":
		return presetSave(ctx, cfg, log, repo, args[1:])
	case "apply":
		return presetApply(ctx, cfg, log, repo, args[1:])
	case "list":
		return presetList(ctx, repo)
	case "delete":
		return presetDelete(ctx, repo, args[1:])
	default:
		return fmt.Errorf("unknown preset command: %s", args[0])
	}
}

// presetSave captures the device's current writable values.
func presetSave(ctx context.Context, cfg *config.Config, log *logging.Logger, repo preset.Repository, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: preset save <name> [description]")
	}
	name := args[0]
	description := strings.Join(args[1:], " ")

	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	rows, err := sess.List()
	if err != nil {
		return fmt.Errorf("reading parameters: %w", err)
	}
	snapshot := make(map[param.Kind]param.Value, len(rows))
	for _, row := range rows {
		snapshot[row.Kind] = row.Value
	}

	p := &preset.Preset{
		Name:        name,
		Description: description,
		Values:      preset.Capture(snapshot),
	}
	if err := repo.Save(ctx, p); err != nil {
		return fmt.Errorf("saving preset: %w", err)
	}
	fmt.Printf("Preset %q saved (%d parameters)\n", p.Name, len(p.Values))
	return nil
}

// presetApply writes a saved preset to the device.
func presetApply(ctx context.Context, cfg *config.Config, log *logging.Logger, repo preset.Repository, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: preset apply <name>")
	}
	p, err := repo.GetByName(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading preset: %w", err)
	}

	sess, cleanup, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := p.Apply(sess); err != nil {
		return fmt.Errorf("applying preset: %w", err)
	}
	fmt.Printf("Preset %q applied (%d parameters)\n", p.Name, len(p.Values))
	return nil
}

// presetList prints all saved presets.
func presetList(ctx context.Context, repo preset.Repository) error {
	presets, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing presets: %w", err)
	}
	if len(presets) == 0 {
		fmt.Println("No presets saved")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPARAMS\tUPDATED\tDESCRIPTION")
	for _, p := range presets {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			p.Name, len(p.Values), p.UpdatedAt.Format("2006-01-02 15:04"), p.Description)
	}
	return tw.Flush()
}

// presetDelete removes a preset by name.
func presetDelete(ctx context.Context, repo preset.Repository, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: preset delete <name>")
	}
	p, err := repo.GetByName(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading preset: %w", err)
	}
	if err := repo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	fmt.Printf("Preset %q deleted\n", p.Name)
	return nil
}
