// Package main provides the range lookup simulator. It wires a fixture
// host, the spellbook and companion indexes, the result cache, the
// invalidation scheduler, and the resolver, then answers queries from an
// interactive prompt or a Lua script.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mudforge/spellrange/internal/companion"
	"github.com/mudforge/spellrange/internal/config"
	"github.com/mudforge/spellrange/internal/host"
	"github.com/mudforge/spellrange/internal/observability"
	"github.com/mudforge/spellrange/internal/rangecache"
	"github.com/mudforge/spellrange/internal/resolver"
	"github.com/mudforge/spellrange/internal/scheduler"
	"github.com/mudforge/spellrange/internal/scripting"
	"github.com/mudforge/spellrange/internal/server"
	"github.com/mudforge/spellrange/internal/spell"
	"github.com/mudforge/spellrange/internal/spellbook"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	fixturePath := flag.String("fixture", "content/fixtures/sample.yaml", "path to host fixture YAML")
	scriptPath := flag.String("script", "", "Lua script to run instead of the interactive prompt")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	fixture, err := host.LoadFixture(*fixturePath)
	if err != nil {
		logger.Fatal("loading fixture", zap.Error(err))
	}

	norm := spell.NewNormalizer(0)
	books := spellbook.NewIndex(fixture, norm)
	actions := companion.NewActions(fixture, norm)
	cache := rangecache.New(cfg.Range.CacheWindow, nil)

	sched := scheduler.New(scheduler.Config{
		Books:         books,
		Actions:       actions,
		Cache:         cache,
		Logger:        logger,
		TickCadence:   cfg.Range.TickCadence,
		SweepInterval: cfg.Range.SweepInterval,
		SweepBudget:   cfg.Range.SweepBudget,
	})
	dispatcher := host.NewDispatcher()
	sched.Subscribe(dispatcher)
	sched.Prime()

	res, err := resolver.New(resolver.Config{
		Oracle:        fixture,
		Books:         books,
		Actions:       actions,
		Cache:         cache,
		Norm:          norm,
		Logger:        logger,
		PriorityUnits: resolver.ExpandUnits(cfg.Range.PriorityUnits),
	})
	if err != nil {
		logger.Fatal("building resolver", zap.Error(err))
	}

	logger.Info("range simulator ready",
		zap.String("fixture", *fixturePath),
		zap.Duration("startup", time.Since(start)),
	)

	if *scriptPath != "" {
		runner, err := scripting.NewRunner(scripting.RunnerConfig{
			Queries:          res,
			Norm:             norm,
			Logger:           logger,
			InstructionLimit: cfg.Scripting.InstructionLimit,
		})
		if err != nil {
			logger.Fatal("building script runner", zap.Error(err))
		}
		defer runner.Close()
		if err := runner.RunFile(*scriptPath); err != nil {
			logger.Fatal("script failed", zap.Error(err))
		}
		return
	}

	lifecycle := server.NewLifecycle(logger)

	tickerDone := make(chan struct{})
	lifecycle.Add("scheduler", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(cfg.Range.TickCadence)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					sched.Tick()
				case <-tickerDone:
					return nil
				}
			}
		},
		StopFn: func() { close(tickerDone) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repl := newREPL(res, norm, fixture, dispatcher, logger)
	repl.onQuit = cancel
	lifecycle.Add("prompt", &server.FuncService{
		StartFn: repl.run,
		StopFn:  repl.stop,
	})

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("simulator error", zap.Error(err))
	}
}

// repl reads query commands from stdin and prints verdicts.
type repl struct {
	res        *resolver.Resolver
	norm       *spell.Normalizer
	fixture    *host.Fixture
	dispatcher *host.Dispatcher
	logger     *zap.Logger
	done       chan struct{}
	onQuit     func()
}

func newREPL(res *resolver.Resolver, norm *spell.Normalizer, fixture *host.Fixture, d *host.Dispatcher, logger *zap.Logger) *repl {
	return &repl{
		res:        res,
		norm:       norm,
		fixture:    fixture,
		dispatcher: d,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (r *repl) run() error {
	fmt.Println("commands: range <spell> <unit> | hasrange <spell> | event <book|petbar|target|ranks> | pet <on|off> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case <-r.done:
			return nil
		default:
		}
		if quit := r.handle(scanner.Text()); quit {
			if r.onQuit != nil {
				r.onQuit()
			}
			return nil
		}
	}
}

func (r *repl) stop() {
	close(r.done)
}

// handle executes one command line. Returns true when the prompt should exit.
func (r *repl) handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "range":
		if len(fields) < 3 {
			fmt.Println("usage: range <spell> <unit>")
			return false
		}
		spellArg := strings.Join(fields[1:len(fields)-1], " ")
		unit := fields[len(fields)-1]
		v := r.res.IsSpellInRange(r.norm.Classify(spellArg), unit)
		fmt.Printf("%s @ %s: %s\n", spellArg, unit, v)
	case "hasrange":
		if len(fields) < 2 {
			fmt.Println("usage: hasrange <spell>")
			return false
		}
		spellArg := strings.Join(fields[1:], " ")
		v := r.res.SpellHasRange(r.norm.Classify(spellArg))
		fmt.Printf("%s has range: %s\n", spellArg, v)
	case "event":
		if len(fields) < 2 {
			fmt.Println("usage: event <book|petbar|target|ranks>")
			return false
		}
		r.emit(fields[1])
	case "pet":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			fmt.Println("usage: pet <on|off>")
			return false
		}
		r.fixture.SetPetPresent(fields[1] == "on")
		r.dispatcher.Emit(host.Event{Kind: host.EventPetBarChanged})
		fmt.Printf("companion present: %v\n", fields[1] == "on")
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}

func (r *repl) emit(name string) {
	switch name {
	case "book":
		r.dispatcher.Emit(host.Event{Kind: host.EventBookChanged})
	case "petbar":
		r.dispatcher.Emit(host.Event{Kind: host.EventPetBarChanged})
	case "target":
		r.dispatcher.Emit(host.Event{Kind: host.EventTargetChanged})
	case "ranks":
		r.dispatcher.Emit(host.Event{
			Kind:    host.EventSettingChanged,
			Setting: host.SettingShowAllRanks,
		})
	default:
		fmt.Printf("unknown event %q\n", name)
		return
	}
	fmt.Printf("emitted %s\n", name)
}
