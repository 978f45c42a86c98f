// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncexec

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// executorOptions holds configuration for executor construction.
type executorOptions struct {
	logger    *logiface.Logger[logiface.Event]
	collector *Collector
	port      Port
}

// --- Executor Options ---

// Option configures an executor instance.
type Option interface {
	apply(*executorOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*executorOptions) error
}

func (o *optionImpl) apply(opts *executorOptions) error {
	return o.applyFunc(opts)
}

// WithLogger attaches a logiface logger to the executor. Lifecycle events
// and dispatch anomalies are logged through it. A nil logger is valid and
// disables logging, which is also the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithCollector installs a shared Collector instead of the executor's
// private one, so several executors can aggregate into one set of
// counters.
func WithCollector(collector *Collector) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if collector == nil {
			return errors.New("asyncexec: nil collector")
		}
		opts.collector = collector
		return nil
	}}
}

// WithPort replaces the built-in in-process wait primitive. Intended for
// instrumented ports in tests and for bridging to external completion
// facilities; the port must honor the Port contract, in particular strict
// FIFO delivery.
func WithPort(port Port) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if port == nil {
			return errors.New("asyncexec: nil port")
		}
		opts.port = port
		return nil
	}}
}

// resolveOptions applies Option instances over the defaults.
func resolveOptions(opts []Option) (*executorOptions, error) {
	cfg := &executorOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // skip nil options gracefully
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.collector == nil {
		cfg.collector = NewCollector()
	}
	if cfg.port == nil {
		cfg.port = newQueuePort()
	}
	return cfg, nil
}
