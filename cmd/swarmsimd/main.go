// Command swarmsimd runs the simulation core behind a REST/WS/gossip
// facade: it loads configuration with viper, builds a core.Scheduler,
// starts the tick loop, and serves the peripheral surfaces outside the
// core itself. Every subsystem is wired up front and shut down on
// SIGINT/SIGTERM. Core configuration is layered (file + env) via viper
// over the defaults; the command-line flags set only process wiring
// (addresses, node ID, SWIM and multicast options), not core knobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/aerosyn-sim/swarmcore/internal/config"
	"github.com/aerosyn-sim/swarmcore/internal/core"
	"github.com/aerosyn-sim/swarmcore/internal/corelog"
	"github.com/aerosyn-sim/swarmcore/internal/domain"
	"github.com/aerosyn-sim/swarmcore/internal/facade/multicast"
	"github.com/aerosyn-sim/swarmcore/internal/facade/rest"
	"github.com/aerosyn-sim/swarmcore/internal/facade/ws"
	"github.com/aerosyn-sim/swarmcore/internal/metrics"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry/gossip"
	"github.com/aerosyn-sim/swarmcore/internal/telemetry/swim"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML configuration file (optional)")
		httpAddr   = flag.String("http-addr", ":8080", "Address for the REST/WS/metrics facade")
		nodeID     = flag.String("id", "swarmsim-1", "Unique ID of this relay node, for SWIM/gossip")
		swimPort   = flag.Int("swim-port", 7946, "SWIM gossip port")
		seedsCSV   = flag.String("seeds", "", "Comma-separated list of SWIM seed addresses")
		mcastGroup = flag.String("multicast-group", "", "UDP multicast group (host:port) for cross-relay control commands; empty disables it")
		mcastIface = flag.String("multicast-iface", "", "Network interface to join the multicast group on (empty autodetects)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := corelog.New(os.Stdout, *nodeID)

	scheduler, err := core.NewScheduler(cfg, logger)
	if err != nil {
		log.Fatalf("build scheduler: %v", err)
	}

	hub := ws.NewHub()
	telemetryStore := telemetry.NewStore(*nodeID)
	scheduler.SetTelemetrySink(telemetry.FanoutSink{Sinks: []telemetry.Sink{hub, telemetryStore}})

	metricsCollectors := metrics.New()

	restServer := rest.New(scheduler, metricsCollectors.Handler())

	var controlChannel *multicast.Channel
	if *mcastGroup != "" {
		controlChannel, err = multicast.Join(*nodeID, *mcastGroup, *mcastIface)
		if err != nil {
			log.Printf("[swarmsimd] multicast control channel disabled: %v", err)
		} else {
			restServer.WithRebroadcaster(controlAdapter{controlChannel})
			go func() {
				if err := controlChannel.Listen(func(msg multicast.Message) {
					applyRemoteCommand(scheduler, msg)
				}); err != nil {
					log.Printf("[swarmsimd] multicast control channel closed: %v", err)
				}
			}()
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/", restServer)
	mux.Handle("/ws", hub)

	httpServer := &http.Server{Addr: *httpAddr, Handler: mux}

	membership, err := swim.NewManager(swim.Config{
		NodeID:   *nodeID,
		BindAddr: "0.0.0.0",
		BindPort: *swimPort,
		APIPort:  httpPort(*httpAddr),
		Seeds:    splitNonEmpty(*seedsCSV),
	})
	if err != nil {
		log.Printf("swim membership disabled: %v", err)
	}

	var disseminator *gossip.DisseminationSystem
	if membership != nil {
		disseminator = gossip.NewDisseminationSystem(*nodeID, cfg.GossipFanout, cfg.GossipTTL, membership, gossip.NewHTTPSender(5*time.Second), telemetryStore)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[swarmsimd] REST/WS/metrics facade listening on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[swarmsimd] http server error: %v", err)
		}
	}()

	scheduler.Start()
	if disseminator != nil {
		disseminator.Start(cfg.DeltaPushInterval, telemetryStore.PendingDelta)
	}

	log.Printf("[swarmsimd] starting tick loop at %s", cfg.TickPeriod())
	stopTicking := make(chan struct{})
	go runTickLoop(scheduler, cfg.TickPeriod(), metricsCollectors, stopTicking)

	<-sigCh
	log.Println("[swarmsimd] shutdown signal received, stopping...")
	close(stopTicking)
	scheduler.Stop()
	if disseminator != nil {
		disseminator.Stop()
	}
	if membership != nil {
		_ = membership.Leave()
		_ = membership.Shutdown()
	}
	if controlChannel != nil {
		_ = controlChannel.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

func runTickLoop(scheduler *core.Scheduler, period time.Duration, mc *metrics.Collectors, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			scheduler.Step()
			mc.ObserveTick(time.Since(start))
			snap := scheduler.Snapshot()
			mc.BurningCells.Set(float64(snap.FireSummary.BurningCells))
			mc.BurnedCells.Set(float64(snap.FireSummary.BurnedCells))
		case <-stop:
			return
		}
	}
}

func loadConfig(path string) (config.CoreConfig, error) {
	cfg := config.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("SWARMSIM")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if v.IsSet("tick_rate_hz") {
		cfg.TickRateHz = v.GetFloat64("tick_rate_hz")
	}
	if v.IsSet("random_seed") {
		cfg.RandomSeed = v.GetInt64("random_seed")
	}
	if v.IsSet("num_leaders") {
		cfg.NumLeaders = v.GetInt("num_leaders")
	}
	if v.IsSet("num_followers") {
		cfg.NumFollowers = v.GetInt("num_followers")
	}
	if v.IsSet("grid_width") {
		cfg.GridWidth = v.GetInt("grid_width")
	}
	if v.IsSet("grid_height") {
		cfg.GridHeight = v.GetInt("grid_height")
	}

	return cfg, nil
}

func httpPort(addr string) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			var port int
			fmt.Sscanf(addr[i+1:], "%d", &port)
			return port
		}
	}
	return 8080
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// controlAdapter satisfies rest.Rebroadcaster over a multicast.Channel,
// translating the facade's transport-agnostic RebroadcastMessage into the
// channel's wire Message.
type controlAdapter struct {
	ch *multicast.Channel
}

func (c controlAdapter) Send(msg rest.RebroadcastMessage) error {
	return c.ch.Send(multicast.Message{
		Kind:             msg.Kind,
		CellX:            msg.CellX,
		CellY:            msg.CellY,
		Intensity:        msg.Intensity,
		Strength:         msg.Strength,
		WindSpeedMS:      msg.WindSpeedMS,
		WindDirectionDeg: msg.WindDirectionDeg,
		DroneID:          msg.DroneID,
	})
}

// applyRemoteCommand re-enqueues a command received from a sibling relay
// onto this process's own scheduler, so every relay in the multicast
// group converges on the same operator-issued command within one tick.
func applyRemoteCommand(scheduler *core.Scheduler, msg multicast.Message) {
	scheduler.Enqueue(core.Command{
		Kind:             core.CommandKind(msg.Kind),
		CellX:            msg.CellX,
		CellY:            msg.CellY,
		Intensity:        msg.Intensity,
		Strength:         msg.Strength,
		WindSpeedMS:      msg.WindSpeedMS,
		WindDirectionDeg: msg.WindDirectionDeg,
		DroneID:          domain.DroneId(msg.DroneID),
	})
}
