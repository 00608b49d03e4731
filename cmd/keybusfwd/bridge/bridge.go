package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/txn2/keybusfwd/pkg/fwdapi"
	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdbridge"
	"github.com/txn2/keybusfwd/pkg/fwdcapture"
	"github.com/txn2/keybusfwd/pkg/fwdcfg"
	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdsession"
	"github.com/txn2/keybusfwd/pkg/fwdtui"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

// Version is set by the main package
var Version string

const (
	busBufferSize   = 1000
	shutdownTimeout = 3 * time.Second
)

func init() {
	addFlags(Cmd)
}

func addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "Path to a YAML config file. Flags override its values.")
	f.StringP("listen", "l", fwdcfg.DefaultListen, "Telnet listen address.")
	f.IntP("port", "p", 0, "Telnet port, shorthand for --listen :PORT.")
	f.String("greeting", fwdbridge.DefaultGreeting, "Sent to each client when it connects.")
	f.Duration("poll-interval", fwdbridge.DefaultPollInterval, "Pause between bridge steps (0 yields instead of sleeping).")
	f.Duration("write-timeout", fwdsession.DefaultWriteTimeout, "Drop a client that cannot take a line within this time.")
	f.Int("queue-size", fwdcapture.DefaultQueueSize, "Decoded events held before the decoder reports a buffer overflow.")
	f.String("replay", "", "Replay a bus capture (.cbor, .cbor.zst, .cbor.lz4) as the bus.")
	f.String("record", "", "Record bus events to a capture file. The extension picks the compression.")
	f.Bool("loop", false, "Restart the replay when the capture ends.")
	f.Bool("process-module-data", false, "Decode keypad and module traffic in addition to panel traffic.")
	f.Bool("hide-digits", false, "Hide access code digits in decoded module messages.")
	f.Bool("display-trailing-bits", false, "Keep trailing bits in the binary rendering of each command.")
	f.Bool("api", false, "Enable the REST API for automation and monitoring.")
	f.String("api-addr", fwdapi.DefaultAddr, "REST API listen address.")
	f.Bool("tui", false, "Enable the terminal user interface.")
	f.BoolP("verbose", "v", false, "Verbose output.")
}

var Cmd = &cobra.Command{
	Use:     "bridge",
	Aliases: []string{"run"},
	Short:   "Bridge the Keybus to a telnet client",
	Long: `Read decoded Keybus traffic and write it to one telnet client, one line per
event. Bytes the client types are written to the bus as virtual keypad
keystrokes.

Only one client is attached at a time. A second connection is told the
bridge is busy and closed.

Without bus hardware the bridge replays a capture recorded with --record,
or runs idle and reports the bus as disconnected.`,
	Example: "  keybusfwd --replay panel.cbor.zst             # Replay a capture on :2323\n" +
		"  keybusfwd --replay panel.cbor.zst --loop --tui\n" +
		"  keybusfwd -p 23 --record session.cbor.lz4\n" +
		"  keybusfwd -c keybusfwd.yaml --api             # REST API on 127.0.0.1:8080\n" +
		"  telnet localhost 2323",
	Run: runCmd,
}

// loadConfig starts from the config file (or the defaults) and applies
// every flag set on the command line.
func loadConfig(cmd *cobra.Command) (fwdcfg.Config, error) {
	fs := cmd.Flags()

	cfg := fwdcfg.Default()
	if path, _ := fs.GetString("config"); path != "" {
		loaded, err := fwdcfg.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	var err error
	set := func(name string, apply func() error) {
		if err != nil || !fs.Changed(name) {
			return
		}
		err = errors.Wrapf(apply(), "--%s", name)
	}

	set("listen", func() (e error) { cfg.Listen, e = fs.GetString("listen"); return })
	set("port", func() error {
		port, e := fs.GetInt("port")
		cfg.Listen = fmt.Sprintf(":%d", port)
		return e
	})
	set("greeting", func() (e error) { cfg.Greeting, e = fs.GetString("greeting"); return })
	set("poll-interval", func() (e error) { cfg.PollInterval, e = fs.GetDuration("poll-interval"); return })
	set("write-timeout", func() (e error) { cfg.WriteTimeout, e = fs.GetDuration("write-timeout"); return })
	set("queue-size", func() (e error) { cfg.QueueSize, e = fs.GetInt("queue-size"); return })
	set("replay", func() (e error) { cfg.Capture.Replay, e = fs.GetString("replay"); return })
	set("record", func() (e error) { cfg.Capture.Record, e = fs.GetString("record"); return })
	set("loop", func() (e error) { cfg.Capture.Loop, e = fs.GetBool("loop"); return })
	set("process-module-data", func() (e error) { cfg.Decoder.ProcessModuleData, e = fs.GetBool("process-module-data"); return })
	set("hide-digits", func() (e error) { cfg.Decoder.HideDigits, e = fs.GetBool("hide-digits"); return })
	set("display-trailing-bits", func() (e error) {
		cfg.Decoder.DisplayTrailingBits, e = fs.GetBool("display-trailing-bits")
		return
	})
	set("api", func() (e error) { cfg.API.Enabled, e = fs.GetBool("api"); return })
	set("api-addr", func() (e error) { cfg.API.Addr, e = fs.GetString("api-addr"); return })
	set("tui", func() (e error) { cfg.TUI, e = fs.GetBool("tui"); return })
	set("verbose", func() (e error) { cfg.Verbose, e = fs.GetBool("verbose"); return })
	if err != nil {
		return cfg, err
	}

	return cfg, errors.Wrap(cfg.Validate(), "invalid flags")
}

// app is one running bridge and everything attached to it
type app struct {
	cfg    fwdcfg.Config
	source string

	decoder  fwdkeybus.Decoder
	bus      *events.Bus
	store    *state.Store
	metrics  *fwdmetrics.Registry
	sessions *fwdsession.Manager
	bridge   *fwdbridge.Bridge
	recorder *fwdcapture.Recorder
	api      *fwdapi.Manager
	tui      *fwdtui.Manager
}

// openDecoder picks the bus source: a capture replay when configured,
// otherwise an idle bus that never connects.
func openDecoder(cfg fwdcfg.Config) (fwdkeybus.Decoder, string, error) {
	if cfg.Capture.Replay == "" {
		log.Warn("No capture to replay, the bus stays disconnected (see --replay)")
		return &fwdkeybus.Idle{}, "idle", nil
	}
	replayer, err := fwdcapture.OpenReplayer(cfg.Capture.Replay, fwdcapture.ReplayOptions{
		Options:   cfg.Decoder,
		QueueSize: cfg.QueueSize,
		Loop:      cfg.Capture.Loop,
	})
	if err != nil {
		return nil, "", err
	}
	return replayer, filepath.Base(cfg.Capture.Replay), nil
}

// setup builds the bridge without starting the bridge loop. The telnet
// listener is bound before setup returns.
func setup(ctx context.Context, cfg fwdcfg.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	a.decoder, a.source, err = openDecoder(cfg)
	if err != nil {
		return a, err
	}

	a.bus = events.NewBus(busBufferSize)
	a.store = state.NewStore(state.DefaultMaxLines, 0)
	a.bus.SubscribeAll(a.store.Handle)
	if cfg.Capture.Record != "" {
		a.recorder, err = fwdcapture.CreateRecorder(cfg.Capture.Record)
		if err != nil {
			return a, err
		}
		a.bus.SubscribeAll(a.recorder.Handle)
		log.Infof("Recording bus events to %s (%s)", cfg.Capture.Record, fwdcapture.CompressionFor(cfg.Capture.Record))
	}
	a.bus.Start()

	a.metrics = fwdmetrics.NewRegistry()
	a.metrics.Start()

	a.sessions, err = fwdsession.Listen(ctx, cfg.Listen, fwdsession.Options{
		WriteTimeout: cfg.WriteTimeout,
		Metrics:      a.metrics.Bridge(),
	})
	if err != nil {
		return a, err
	}

	a.bridge = fwdbridge.New(a.decoder, a.sessions, fwdbridge.Config{
		Greeting:     cfg.Greeting,
		PollInterval: cfg.PollInterval,
		Publisher:    a.bus,
		Metrics:      a.metrics.Bridge(),
	})

	if cfg.API.Enabled {
		a.api = setupAPIManager(a)
	}
	if cfg.TUI {
		styles.SetDarkTheme(termenv.HasDarkBackground())
		a.tui = fwdtui.New(fwdtui.Config{
			Version: Version,
			Listen:  a.sessions.Addr().String(),
			Source:  a.source,
			Store:   a.store,
			Bus:     a.bus,
			Metrics: a.metrics,
		})
	}
	return a, nil
}

func setupAPIManager(a *app) *fwdapi.Manager {
	kind := "replay"
	if a.cfg.Capture.Replay == "" {
		kind = "idle"
	}
	m := fwdapi.New(fwdapi.Config{
		Addr:    a.cfg.API.Addr,
		Version: Version,
		Info: types.InfoResponse{
			Version:      Version,
			GoVersion:    runtime.Version(),
			Platform:     runtime.GOOS + "/" + runtime.GOARCH,
			StartTime:    time.Now(),
			ListenAddr:   a.sessions.Addr().String(),
			DecoderKind:  kind,
			TUIEnabled:   a.cfg.TUI,
			APIEnabled:   true,
			Recording:    a.cfg.Capture.Record != "",
			ModuleData:   a.cfg.Decoder.ProcessModuleData,
			HideDigits:   a.cfg.Decoder.HideDigits,
			TrailingBits: a.cfg.Decoder.DisplayTrailingBits,
		},
	})
	m.SetStateReader(fwdapi.NewStateReaderAdapter(func() *state.Store { return a.store }))
	m.SetMetricsProvider(fwdapi.NewMetricsProviderAdapter(a.metrics))
	m.SetEventStreamer(fwdapi.NewEventStreamerAdapter(func() *events.Bus { return a.bus }))
	return m
}

// run blocks until ctx is cancelled, the TUI quits or a component fails.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.bridge.Run(gctx) })
	if a.api != nil {
		g.Go(func() error { return a.api.Run(gctx) })
	}
	if a.tui != nil {
		g.Go(func() error {
			defer cancel()
			return errors.Wrap(a.tui.Run(), "TUI error")
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.bus.Publish(events.Event{Type: events.ShutdownStarted, Timestamp: time.Now()})
		if a.tui != nil {
			a.tui.Stop()
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// close releases everything setup acquired. The bus is stopped after the
// bridge so the recorder sees every event before its file is closed.
func (a *app) close() {
	if a.sessions != nil {
		if err := a.sessions.Shutdown(); err != nil {
			log.Debugf("Telnet listener shutdown: %v", err)
		}
	}
	if a.api != nil {
		a.api.Stop()
		select {
		case <-a.api.Done():
			log.Debugf("API server cleanup complete")
		case <-time.After(shutdownTimeout):
			log.Debugf("Timeout waiting for API cleanup")
		}
	}
	if a.tui != nil {
		select {
		case <-a.tui.Done():
			log.Debugf("TUI cleanup complete")
		case <-time.After(shutdownTimeout):
			log.Debugf("Timeout waiting for TUI cleanup")
		}
	}
	if a.bus != nil {
		a.bus.Stop()
		if dropped := a.bus.Dropped(); dropped > 0 {
			log.Warnf("%d bridge events were dropped", dropped)
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			log.Errorf("Capture %s is incomplete: %v", a.cfg.Capture.Record, err)
		} else {
			log.Infof("Recorded %d frames to %s", a.recorder.Frames(), a.cfg.Capture.Record)
		}
	}
	if a.metrics != nil {
		a.metrics.Stop()
	}
}

func runCmd(cmd *cobra.Command, _ []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Fatalf("Configuration error: %s", err)
	}
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to start bridge: %s", err)
	}

	if a.tui == nil {
		log.Infof("Telnet bridge listening on %s (bus: %s)", a.sessions.Addr(), a.source)
		log.Println("Press [Ctrl-C] to stop.")
	}

	// a second signal while shutting down exits at once
	go func() {
		<-ctx.Done()
		stop()
		if a.tui == nil {
			log.Infof("Shutting down... (press Ctrl+C again to force)")
		}
	}()

	runErr := a.run(ctx)
	a.close()
	if runErr != nil {
		log.Fatalf("Bridge stopped: %s", runErr)
	}

	log.Infof("Clean exit")
}
