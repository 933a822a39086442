package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-instrument/instrument"
	"github.com/wippyai/wasm-instrument/validate"
)

// run executes decode, inspection, splicing and output for one invocation.
// The output file is written only after every earlier step succeeded.
func run(ctx context.Context, cfg *config, stdOut, stdErr io.Writer) error {
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, stdErr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	instrument.SetLogger(logger)

	m, err := instrument.DecodeFile(cfg.In)
	if err != nil {
		return err
	}

	if cfg.Dump {
		if err := printInstructions(stdOut, m, cfg.Symbol); err != nil {
			return err
		}
	}
	if cfg.Report {
		deps, err := m.Report(cfg.Symbol)
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Fprintf(stdOut, "%d\t%d\t%s\n", d.Position, d.Callee, d.Name())
		}
	}
	if cfg.Transitive {
		deps, err := m.TransitiveDependencies(cfg.Symbol)
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Fprintf(stdOut, "%d\t%s\n", d.Callee, d.Name())
		}
	}

	for _, e := range cfg.Splices {
		if err := m.Splice(cfg.Symbol, e.Position, e.Instruction); err != nil {
			return err
		}
	}

	if cfg.Out == "" {
		return nil
	}

	data, err := m.Encode()
	if err != nil {
		return err
	}
	if cfg.Validate {
		vcfg := &validate.Config{EnableThreads: cfg.Threads}
		if err := validate.ModuleWithConfig(ctx, data, vcfg); err != nil {
			return err
		}
	}
	if err := instrument.WriteFile(cfg.Out, data); err != nil {
		return err
	}

	logger.Info("wrote module",
		zap.String("path", cfg.Out),
		zap.Int("bytes", len(data)),
		zap.Int("splices", len(cfg.Splices)))
	return nil
}

func printInstructions(w io.Writer, m *instrument.Module, symbol string) error {
	instrs, err := m.Instructions(symbol)
	if err != nil {
		return err
	}
	for i, instr := range instrs {
		fmt.Fprintf(w, "%d\t%s\n", i, instr)
	}
	return nil
}
