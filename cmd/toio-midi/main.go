// Command toio-midi plays a standard MIDI file on toio cubes, one monophonic
// voice per cube.
//
// Usage:
//
//	toio-midi [flags] <file.mid>
//
// With -list it prints the indices of tracks that contain notes and exits.
// Otherwise it assigns tracks to cubes (via -rule, or one track per cube by
// default), merges each cube's tracks into a single voice and plays them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/YushiOMOTE/toio-midi/internal/config"
	"github.com/YushiOMOTE/toio-midi/internal/logger"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
	"github.com/YushiOMOTE/toio-midi/sdk/player"
)

const defaultConfigPath = "toio-midi.yaml"

// ruleFlags collects repeatable -rule flags.
type ruleFlags []string

func (r *ruleFlags) String() string { return strings.Join(*r, " ") }

func (r *ruleFlags) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	var (
		rules      ruleFlags
		list       = flag.Bool("list", false, "list tracks that contain notes and exit")
		speed      = flag.Uint64("speed", 100, "playback speed percentage (100 = original tempo)")
		unit       = flag.Uint64("unit", 40, "time-slice size in ms used on merge")
		transport  = flag.String("transport", "", "transport to the cubes: midi or serial (default midi)")
		configPath = flag.String("config", "", "path to a YAML config file")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Var(&rules, "rule", "assign tracks to a cube, device=track[,track...] (repeatable)")
	flag.Parse()

	log := logger.NewZapLogger()
	if *debug {
		log.SetLevel(contracts.DebugLevel)
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.mid>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	file := flag.Arg(0)

	if err := run(file, rules, *list, *speed, *unit, *transport, *configPath, *debug, log); err != nil {
		log.Error("toio-midi failed", log.Field().Error("error", err))
		os.Exit(1)
	}
}

func run(file string, ruleSpecs []string, list bool, speed, unit uint64, transportName, configPath string, debug bool, log contracts.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Flags override file values; flag defaults fill the rest.
	if len(ruleSpecs) == 0 {
		ruleSpecs = cfg.Rules
	}
	if !flagSet("speed") && cfg.Speed > 0 {
		speed = cfg.Speed
	}
	if !flagSet("unit") && cfg.Unit > 0 {
		unit = cfg.Unit
	}
	if transportName == "" {
		transportName = cfg.Transport
	}
	if transportName == "" {
		transportName = "midi"
	}

	if speed == 0 {
		return errors.New("speed must be non-zero")
	}
	if unit == 0 {
		return errors.New("unit must be non-zero")
	}

	level := contracts.InfoLevel
	if debug {
		level = contracts.DebugLevel
	}
	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
		contracts.WithSpeed(speed),
		contracts.WithUnit(unit),
	}
	if cfg.Serial.Port != "" {
		opts = append(opts, contracts.WithSerialConfig(contracts.SerialConfig{
			Port:  cfg.Serial.Port,
			Baud:  cfg.Serial.Baud,
			Cubes: cfg.Serial.Cubes,
		}))
	}

	p, err := player.NewPlayer(opts...)
	if err != nil {
		return err
	}

	log.Info("parsing file", log.Field().String("file", file))
	score, err := p.LoadScore(file)
	if err != nil {
		return err
	}

	if list {
		log.Info("available tracks", log.Field().String("tracks", fmt.Sprint(score.NoteTracks())))
		return nil
	}

	parsed, err := player.ParseRules(ruleSpecs)
	if err != nil {
		return err
	}

	tr, err := player.NewTransport(transportName, opts...)
	if err != nil {
		return err
	}
	defer tr.Close()

	// Ctrl-C cancels playback; the schedulers silence every cube on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = p.Play(ctx, score, parsed, tr)
	if errors.Is(err, context.Canceled) {
		log.Info("playback interrupted")
		return nil
	}
	return err
}

func loadConfig(path string) (*config.File, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadIfExists(defaultConfigPath)
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
