package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wippyai/wasm-instrument/errors"
)

const envPrefix = "WASMINSTR"

// options holds the raw flag values. Flags that were not given on the
// command line are filled from the environment or the config file.
type options struct {
	in          string
	out         string
	symbol      string
	configFile  string
	logLevel    string
	logFormat   string
	splices     []string
	report      bool
	transitive  bool
	dump        bool
	validate    bool
	threads     bool
	interactive bool
}

// config is the resolved configuration of one run.
type config struct {
	In         string
	Out        string
	Symbol     string
	LogLevel   string
	LogFormat  string
	Splices    []edit
	Report     bool
	Transitive bool
	Dump       bool
	Validate   bool
	Threads    bool
}

func addRunFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVar(&opts.in, "in", "", "path of the input wasm module")
	flags.StringVar(&opts.out, "out", "", "path of the output wasm module, written atomically")
	flags.StringVar(&opts.symbol, "symbol", "", "name-section symbol of the target function")
	flags.BoolVar(&opts.report, "report", false, "print the direct callees of the target function")
	flags.BoolVar(&opts.transitive, "transitive", false, "print every function reachable from the target function")
	flags.BoolVar(&opts.dump, "dump", false, "print the instructions of the target function")
	flags.StringArrayVar(&opts.splices, "splice", nil,
		"insert an instruction, given as POS,OPCODE[,OPERAND...]; may be repeated")
	flags.BoolVar(&opts.validate, "validate", false, "compile the output with wazero before writing it")
	flags.BoolVar(&opts.threads, "threads", false, "accept atomic instructions and shared memories when validating")
	flags.BoolVarP(&opts.interactive, "interactive", "i", false, "browse the module in a terminal UI instead")
	addCommonFlags(cmd, opts)
}

// addCommonFlags registers the flags shared by every command that loads a module.
func addCommonFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log encoding: console or json")
	flags.StringVar(&opts.configFile, "config", "", "optional YAML config file")
}

// newViper binds the command's flags to WASMINSTR_* environment variables
// and, when given, to the config file. Explicit flags take precedence.
func newViper(cmd *cobra.Command, opts *options) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// splice values contain commas that viper would split as CSV
		if f.Name == "splice" || f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(f.Name, f)
	})
	if bindErr != nil {
		return nil, errors.Wrap(errors.PhaseUsage, errors.KindInvalidInput, bindErr, "bind flags")
	}

	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.IO("read config", opts.configFile, err)
		}
	}
	return v, nil
}

func loadConfig(cmd *cobra.Command, opts *options) (*config, error) {
	v, err := newViper(cmd, opts)
	if err != nil {
		return nil, err
	}

	cfg := &config{
		In:         v.GetString("in"),
		Out:        v.GetString("out"),
		Symbol:     v.GetString("symbol"),
		LogLevel:   v.GetString("log-level"),
		LogFormat:  v.GetString("log-format"),
		Report:     v.GetBool("report"),
		Transitive: v.GetBool("transitive"),
		Dump:       v.GetBool("dump"),
		Validate:   v.GetBool("validate"),
		Threads:    v.GetBool("threads"),
	}

	args := opts.splices
	if !cmd.Flags().Changed("splice") {
		args = v.GetStringSlice("splice")
	}
	for _, s := range args {
		e, err := parseEdit(s)
		if err != nil {
			return nil, err
		}
		cfg.Splices = append(cfg.Splices, e)
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) check() error {
	if c.In == "" {
		return usageError("--in is required")
	}
	needsSymbol := c.Report || c.Transitive || c.Dump || len(c.Splices) > 0
	if needsSymbol && c.Symbol == "" {
		return usageError("--symbol is required with --report, --transitive, --dump and --splice")
	}
	if len(c.Splices) > 0 && c.Out == "" {
		return usageError("--out is required with --splice")
	}
	if !needsSymbol && c.Out == "" {
		return usageError("nothing to do: give --report, --transitive, --dump, --splice or --out")
	}
	return nil
}

func usageError(format string, args ...any) error {
	return errors.InvalidInput(errors.PhaseUsage, fmt.Sprintf(format, args...))
}
