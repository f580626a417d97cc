// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package oomph

// contextOptions holds configuration options for Context creation.
type contextOptions struct {
	logger            *Logger
	progressBatchSize int
}

// --- Context Options ---

// ContextOption configures a Context instance.
type ContextOption interface {
	applyContext(*contextOptions) error
}

// contextOptionImpl implements ContextOption.
type contextOptionImpl struct {
	applyContextFunc func(*contextOptions) error
}

func (o *contextOptionImpl) applyContext(opts *contextOptions) error {
	return o.applyContextFunc(opts)
}

// WithLogger sets the structured [Logger] a Context uses for its own
// diagnostics and those of every Communicator it issues. Defaults to
// [DefaultLogger] if unset.
func WithLogger(logger *Logger) ContextOption {
	return &contextOptionImpl{func(opts *contextOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithProgressBatchSize caps how many transport completions a single
// Progress() call drains before returning. Zero (the default) means "drain
// all completions the transport currently reports". A positive bound
// limits tail latency for a caller progressing many communicators in a
// round-robin fashion, at the cost of possibly needing more Progress()
// calls to drain a flood of completions.
func WithProgressBatchSize(n int) ContextOption {
	return &contextOptionImpl{func(opts *contextOptions) error {
		opts.progressBatchSize = n
		return nil
	}}
}

// resolveContextOptions applies ContextOption instances to contextOptions.
func resolveContextOptions(opts []ContextOption) (*contextOptions, error) {
	cfg := &contextOptions{
		logger: DefaultLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyContext(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
