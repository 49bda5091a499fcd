package persistence

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/config"
)

// PolicyFromConfig builds the retry policy described by cfg.
func PolicyFromConfig(cfg config.PersistenceConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = cfg.MaxAttempts
	p.InitialInterval = cfg.InitialBackoff
	p.MaxInterval = cfg.MaxBackoff
	p.AttemptTimeout = cfg.AttemptTimeout
	return p
}

// NewStoreFromConfig returns the store cfg selects.
func NewStoreFromConfig(cfg config.PersistenceConfig) (Store, error) {
	switch cfg.Backend {
	case "http":
		return NewHTTPStore(cfg.Endpoint, &http.Client{}), nil
	case "file":
		return NewFileStore(cfg.SaveDir), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}

// NewGatewayFromConfig wires a store, retry policy and logger into a Gateway.
func NewGatewayFromConfig(cfg config.PersistenceConfig, logger *zap.Logger) (*Gateway, error) {
	store, err := NewStoreFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewGateway(NewGatewayOptions{
		Store:         store,
		Policy:        PolicyFromConfig(cfg),
		Logger:        logger,
		ProbeInterval: cfg.ProbeInterval,
	}), nil
}
