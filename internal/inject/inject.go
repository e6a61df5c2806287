// Package inject wraps the cosmetic-injection mechanism. Failures here are
// reported per champion and never touch party state.
package inject

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/types"
)

var ErrInjectionFailed = errors.New("injection failed")

// Injector applies one skin selection to the running game.
type Injector interface {
	ApplySkin(ctx context.Context, championID int, sel types.SkinSelection) error
}

// ModTools shells out to the bundled cslol mod-tools overlay runner.
type ModTools struct {
	toolPath   string
	leaguePath string
	log        *zap.SugaredLogger
}

func NewModTools(toolPath, leaguePath string, log *zap.SugaredLogger) *ModTools {
	return &ModTools{toolPath: toolPath, leaguePath: leaguePath, log: log}
}

func (m *ModTools) ApplySkin(ctx context.Context, championID int, sel types.SkinSelection) error {
	args := []string{
		"runoverlay",
		"--game-path", m.leaguePath,
		"--champion-id", strconv.Itoa(championID),
		"--skin-id", strconv.Itoa(sel.SkinID),
	}
	if sel.ChromaID != nil {
		args = append(args, "--chroma-id", strconv.Itoa(*sel.ChromaID))
	}
	if sel.Fantome != nil {
		args = append(args, "--fantome", *sel.Fantome)
	}

	cmd := exec.CommandContext(ctx, m.toolPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		m.log.Errorw("mod-tools failed", "champion", championID, "out", string(out), "err", err)
		return fmt.Errorf("champion %d: %w", championID, ErrInjectionFailed)
	}
	m.log.Infow("skin applied", "champion", championID, "skin", sel.SkinID)
	return nil
}

// Noop is used when no mod-tools binary is configured; it only logs.
type Noop struct {
	log *zap.SugaredLogger
}

func NewNoop(log *zap.SugaredLogger) *Noop { return &Noop{log: log} }

func (n *Noop) ApplySkin(_ context.Context, championID int, sel types.SkinSelection) error {
	n.log.Infow("injection disabled, skipping", "champion", championID, "skin", sel.SkinID)
	return nil
}
