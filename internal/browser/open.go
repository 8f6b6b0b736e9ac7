package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/config"
	"github.com/nbenliogludev/go-booking-e2e/internal/logging"
)

// Open launches a session on the configured engine.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger).Named("browser")

	switch cfg.Engine {
	case config.EnginePlaywright, "":
		s, err := NewPlaywrightSession(cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.EngineChromedp:
		s, err := NewChromeSession(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
}
