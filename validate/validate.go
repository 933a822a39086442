// Package validate checks that an emitted module is accepted by a wasm
// runtime. Compilation with wazero runs the full validation algorithm, so a
// splice that breaks operand stack typing is reported here.
package validate

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"

	"github.com/wippyai/wasm-instrument/errors"
)

// Config selects the wasm features a module may use.
type Config struct {
	// EnableThreads accepts atomic instructions and shared memories.
	EnableThreads bool
}

// Module compiles data with the wazero interpreter and reports any failure
// as errors.KindValidation.
func Module(ctx context.Context, data []byte) error {
	return ModuleWithConfig(ctx, data, nil)
}

// ModuleWithConfig is Module with explicit feature selection.
func ModuleWithConfig(ctx context.Context, data []byte, cfg *Config) error {
	rc := wazero.NewRuntimeConfigInterpreter()
	if cfg != nil && cfg.EnableThreads {
		rc = rc.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rc)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return errors.Validation(err)
	}
	if err := compiled.Close(ctx); err != nil {
		return errors.Validation(err)
	}
	return nil
}
