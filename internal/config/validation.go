// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
)

// Validate checks a resolved AppConfig for internally-consistent values.
// Returns a joined error listing every violation found, not just the first.
func Validate(cfg AppConfig) error {
	var errs []error

	if cfg.DataDir == "" {
		errs = append(errs, errors.New("dataDir must not be empty"))
	}
	if cfg.HTTPListenAddr == "" {
		errs = append(errs, errors.New("http.listenAddr must not be empty"))
	}
	if cfg.GlobalMaxConcurrency < 1 || cfg.GlobalMaxConcurrency > 128 {
		errs = append(errs, fmt.Errorf("scheduler.globalMaxConcurrency must be in [1,128], got %d", cfg.GlobalMaxConcurrency))
	}
	for class, cap := range cfg.ToolCaps {
		if cap < 1 {
			errs = append(errs, fmt.Errorf("scheduler.toolCaps[%s] must be >= 1, got %d", class, cap))
		}
	}
	if cfg.CancelGrace <= 0 {
		errs = append(errs, errors.New("scheduler.cancelGrace must be positive"))
	}
	if cfg.ShutdownGrace <= 0 {
		errs = append(errs, errors.New("scheduler.shutdownGrace must be positive"))
	}
	if cfg.StalenessTolerance < 0 {
		errs = append(errs, errors.New("artifact.stalenessTolerance must not be negative"))
	}
	if cfg.StatusCacheTTL <= 0 {
		errs = append(errs, errors.New("artifact.statusCacheTTL must be positive"))
	}
	if cfg.CoverageCacheTTL <= 0 {
		errs = append(errs, errors.New("coverage.cacheTTL must be positive"))
	}
	if cfg.OrphanConfidenceFloor < 0 || cfg.OrphanConfidenceFloor > 1 {
		errs = append(errs, fmt.Errorf("orphan.confidenceFloor must be in [0,1], got %f", cfg.OrphanConfidenceFloor))
	}
	if cfg.BusSubscriberQueueSize < 1 {
		errs = append(errs, errors.New("bus.subscriberQueueSize must be >= 1"))
	}
	switch cfg.StoreBackend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.backend must be \"memory\" or \"sqlite\", got %q", cfg.StoreBackend))
	}
	if cfg.StoreBackend == "sqlite" && cfg.StorePath == "" {
		errs = append(errs, errors.New("store.path is required when store.backend is \"sqlite\""))
	}

	return errors.Join(errs...)
}
