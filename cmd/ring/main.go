// Command ring runs a Chang-Roberts leader-election ring: it builds the
// worker topology from the configured size, starts every worker, fires an
// initial election, and then either hands control to the interactive
// operator console, or drives further elections on a timer: a fixed number
// of them, or, with no election count, one per sleep interval until a
// shutdown signal arrives, per spec.md §6.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastig2001/ring-election/internal/commandline"
	"github.com/bastig2001/ring-election/internal/config"
	"github.com/bastig2001/ring-election/internal/event"
	"github.com/bastig2001/ring-election/internal/logging"
	"github.com/bastig2001/ring-election/internal/presenter"
	"github.com/bastig2001/ring-election/internal/ring"
)

func main() {
	os.Exit(run())
}

func run() int {
	var cfg config.Config
	if err := config.Load(os.Args[1:], &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, config.ErrInvalidSize) {
			return int(config.ExitMissingSize)
		}
		return int(config.ExitConfigParseError)
	}

	log, logCloser, err := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Console: cfg.LogConsole,
		File:    cfg.LogFile,
		Date:    cfg.LogDate,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(config.ExitSinkCreateFailure)
	}
	defer logCloser.Close()

	if !cfg.NoConfigLog {
		log.Info("resolved configuration",
			"size", cfg.Size,
			"number_of_elections", cfg.NumberOfElections,
			"sleep_ms", cfg.Sleep,
			"worker_sleep_ms", cfg.WorkerSleep,
			"command_line", cfg.CommandLine,
			"nats", cfg.EnableNats,
		)
	}

	var cl *commandline.CommandLine
	var base event.Sink = presenter.Default()
	if cfg.CommandLine {
		cl = commandline.New(nil, os.Stdin, os.Stdout, "> ")
		base = presenter.NewHooked(base, cl.PreOutput, cl.PostOutput)
	}

	sinks := []event.Sink{presenter.NewInstrumented(base, log)}
	if cfg.EnableNats {
		natsSink, err := presenter.NewNats(presenter.NatsConfig{URL: cfg.NatsURL, Subject: cfg.NatsSubject}, log)
		if err != nil {
			log.Error("failed to connect to nats", "error", err)
			return int(config.ExitSinkCreateFailure)
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
	}
	sink := presenter.NewMulti(sinks...)

	r, err := ring.New(cfg.Size, time.Duration(cfg.WorkerSleep)*time.Millisecond, sink)
	if err != nil {
		log.Error("failed to build ring", "error", err)
		return int(config.ExitMissingSize)
	}

	r.Start()
	// An election always fires right after the ring starts, matching
	// original_source's main loop (config.cpp / main.cpp), which the
	// distilled spec left implicit.
	_ = r.StartElection()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cl != nil {
		cl.SetRing(r)
		if err := cl.Start(); err != nil {
			log.Error("failed to start command line", "error", err)
		} else {
			go func() {
				<-quit
				cl.Exit()
			}()
			cl.Wait()
		}
	} else if cfg.NumberOfElections > 0 {
		sleep := time.Duration(cfg.Sleep) * time.Millisecond
	loop:
		for i := 1; i < cfg.NumberOfElections; i++ {
			select {
			case <-quit:
				break loop
			case <-time.After(sleep):
				_ = r.StartElection()
			}
		}
		time.Sleep(sleep)
	} else {
		sleep := time.Duration(cfg.Sleep) * time.Millisecond
	infiniteLoop:
		for {
			select {
			case <-quit:
				break infiniteLoop
			case <-time.After(sleep):
				_ = r.StartElection()
			}
		}
	}

	r.Stop()
	return int(config.ExitOK)
}
