package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YushiOMOTE/toio-midi/internal/logger"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
	"github.com/YushiOMOTE/toio-midi/sdk/player"
)

func main() {
	log := logger.NewZapLogger()

	p, err := player.NewPlayer(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithSpeed(100),
		contracts.WithUnit(40),
	)
	if err != nil {
		log.Error("Failed to initialize player", log.Field().Error("error", err))
		return
	}

	score, err := p.LoadScore("song.mid")
	if err != nil {
		log.Error("Failed to load score", log.Field().Error("error", err))
		return
	}
	fmt.Println("Tracks with notes:", score.NoteTracks())

	// Play tracks 0 and 1 merged on cube 0, track 2 on cube 1.
	rules, err := player.ParseRules([]string{"0=0,1", "1=2"})
	if err != nil {
		log.Error("Failed to parse rules", log.Field().Error("error", err))
		return
	}

	transport, err := player.NewTransport("midi", contracts.WithLogger(log))
	if err != nil {
		log.Error("Failed to initialize transport", log.Field().Error("error", err))
		return
	}
	defer transport.Close()

	if err := p.Play(context.Background(), score, rules, transport); err != nil {
		log.Error("Playback failed", log.Field().Error("error", err))
		os.Exit(1)
	}
}
