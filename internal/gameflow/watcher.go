// Package gameflow watches the client's game phase and triggers skin
// injection once the local player has locked a champion.
package gameflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/resolve"
	"github.com/BananaLabs/oss-companion/internal/transport"
)

const (
	phaseChampSelect = "ChampSelect"
	phaseInProgress  = "InProgress"
)

type Watcher struct {
	flow     transport.Gameflow
	resolver *resolve.Engine
	interval time.Duration
	log      *zap.SugaredLogger

	lastApplied int // champion already injected for the current game, 0 when none
}

func NewWatcher(flow transport.Gameflow, resolver *resolve.Engine, interval time.Duration, log *zap.SugaredLogger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{flow: flow, resolver: resolver, interval: interval, log: log}
}

// Run polls the gameflow phase until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	phase, err := w.flow.Phase(ctx)
	if err != nil {
		w.log.Debugw("gameflow phase unavailable", "err", err)
		return
	}

	switch phase {
	case phaseChampSelect, phaseInProgress:
		championID, ok, err := w.flow.LockedChampion(ctx)
		if err != nil {
			w.log.Debugw("champ select session unavailable", "err", err)
			return
		}
		if !ok || championID == w.lastApplied {
			return
		}
		if _, _, found := w.resolver.SkinForChampion(championID); !found {
			// Nothing selected for this champion yet; keep checking, a
			// selection may still land before the game starts.
			return
		}
		if err := w.resolver.ApplyForChampion(ctx, championID); err != nil {
			w.log.Errorw("could not apply skin", "champion", championID, "err", err)
			return
		}
		w.lastApplied = championID
	default:
		w.lastApplied = 0
	}
}
