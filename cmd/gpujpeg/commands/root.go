package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xupit3r/gpujpeg"
	"github.com/xupit3r/gpujpeg/internal/config"
	"github.com/xupit3r/gpujpeg/internal/logging"
)

// Version is set at build time with -ldflags "-X ...commands.Version=..."
var Version = "0.1.0"

// app holds the state shared by one command tree
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	quiet   bool
	cfg     *config.Config
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the full command tree
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "gpujpeg",
		Short: "GPU-accelerated JPEG encode and decode",
		Long: `gpujpeg compresses and decompresses JPEG images on an NVIDIA GPU
through nvJPEG, with a software engine for machines without one.

Images are staged through device memory for every call, and every
device buffer and codec object is released before the command exits.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.gpujpeg/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "quiet mode")
	flags.String("device", "auto", "compute device: auto, cpu, cuda")
	flags.String("engine", "auto", "codec engine: auto, software, nvjpeg")

	// Bind flags to viper
	a.v.BindPFlag("device.backend", flags.Lookup("device"))
	a.v.BindPFlag("codec.engine", flags.Lookup("engine"))

	root.AddCommand(
		newEncodeCommand(a),
		newDecodeCommand(a),
		newInfoCommand(a),
		newDeviceCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
		newCompletionCommand(),
	)
	registerFlagCompletions(root)

	return root
}

// initConfig reads in config file, ENV variables and flags, then sets up logging
func (a *app) initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWith(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	switch {
	case a.verbose:
		level = "debug"
	case a.quiet:
		level = "error"
	}
	if err := logging.Init(level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	if a.verbose && a.v.ConfigFileUsed() != "" {
		logging.Debugf("using config file: %s", a.v.ConfigFileUsed())
	}
	return nil
}

// newCodec builds a codec from the effective configuration
func (a *app) newCodec() (*gpujpeg.Codec, error) {
	params, err := a.cfg.EncodeParams()
	if err != nil {
		return nil, err
	}
	return gpujpeg.New(
		gpujpeg.WithDevice(a.cfg.Device.Backend),
		gpujpeg.WithEngine(a.cfg.Codec.Engine),
		gpujpeg.WithQuality(params.Quality),
		gpujpeg.WithSubsampling(params.Subsampling.String()),
		gpujpeg.WithLogger(logging.Get()),
	)
}
