// midimaxe runs the multi-port MIDI clock master and its sync-checker
// verifiers as a single long-lived process: one coordinator goroutine
// driving every output port's clock generator, and one goroutine
// draining the sync-checker clients, both torn down cleanly on
// SIGINT/SIGTERM.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/polygon/midimaxe/internal/logger"
	"github.com/polygon/midimaxe/internal/mididrv"
	"github.com/polygon/midimaxe/internal/worker"
	"github.com/polygon/midimaxe/sdk/bus"
	"github.com/polygon/midimaxe/sdk/clock"
	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/polygon/midimaxe/sdk/driver"
	"github.com/polygon/midimaxe/sdk/midi"
	"github.com/polygon/midimaxe/sdk/multisync"
	"github.com/polygon/midimaxe/sdk/synccheck"
)

func main() {
	bpm := flag.Float64("bpm", 120, "master tempo in beats per minute (60-300)")
	quantum := flag.Float64("quantum", 16, "join/rejoin quantum, in beats")
	tpqn := flag.Float64("tpqn", contracts.DefaultTPQN, "ticks per quarter note")
	checkerCount := flag.Int("sync-checkers", 1, "number of sync-checker verifier clients to run")
	historySize := flag.Int("history", 24, "sync-checker recent-tick ring buffer depth")
	checkerPeriod := flag.Duration("checker-period", 5*time.Millisecond, "sync-checker drain period")
	flag.Parse()

	log := logger.NewZapLogger()

	settings := contracts.NewSettings(*bpm, *quantum, tpqn)
	if !settings.IsValid() {
		log.Fatal("invalid settings",
			log.Field().Float64("bpm", *bpm),
			log.Field().Float64("quantum", *quantum))
	}

	drv := mididrv.New()
	cmds := bus.NewCommands()
	events := bus.NewEvents()

	coordinator := multisync.New(drv, cmds, events, log, settings)
	loop := worker.NewLoop(coordinator, clock.Now)
	go loop.Start()

	clients := startSyncCheckers(drv, log, *checkerCount, *historySize, settings.TPQN)
	checkerLoop := worker.NewCheckerLoop(clients, *checkerPeriod)
	go checkerLoop.Start()

	cmds.Send(bus.Command{Kind: bus.Start})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	closeOnce := sync.Once{}

	shutdown := func(reason string) {
		log.Info(reason)
		checkerLoop.Stop()
		for _, c := range clients {
			if err := c.Close(); err != nil {
				log.Warn("failed to close sync-checker client", log.Field().Error("error", err))
			}
		}
		loop.Stop()
		closeOnce.Do(func() { close(done) })
	}

	go func() {
		<-sigChan
		shutdown("received shutdown signal, stopping")
	}()

	fmt.Println("midimaxe running. Press Ctrl+C to exit.")
	<-done
	log.Info("midimaxe terminated gracefully")
}

// startSyncCheckers constructs n sync-checker clients. It prefers a
// virtual input on the primary driver; when the backend cannot create
// one (driver.ErrUnsupported, e.g. non-POSIX builds without rtmididrv),
// it falls back to the platform's degraded-mode LegacyCapture adapter,
// per spec.md §6.
func startSyncCheckers(drv driver.Driver, log contracts.Logger, n, historySize int, tpqn float64) []*synccheck.Client {
	clients := make([]*synccheck.Client, 0, n)
	for i := 0; i < n; i++ {
		client, err := synccheck.NewVirtual(drv, i, historySize, tpqn, log)
		if err == nil {
			clients = append(clients, client)
			continue
		}
		if !errors.Is(err, driver.ErrUnsupported) {
			log.Error("failed to create virtual sync-checker input",
				log.Field().Int("id", i), log.Field().Error("error", err))
			continue
		}

		capture, captureErr := midi.NewLegacyCapture(contracts.WithLogger(log))
		if captureErr != nil {
			log.Error("failed to create legacy capture for sync-checker",
				log.Field().Int("id", i), log.Field().Error("error", captureErr))
			continue
		}
		client, err = synccheck.NewLegacy(capture, i, historySize, tpqn, log)
		if err != nil {
			log.Error("failed to start legacy sync-checker capture",
				log.Field().Int("id", i), log.Field().Error("error", err))
			continue
		}
		clients = append(clients, client)
	}
	return clients
}
