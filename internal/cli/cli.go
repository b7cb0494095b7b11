package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/credstore/internal/config"
	"github.com/semmy-space/credstore/internal/logging"
	"github.com/semmy-space/credstore/internal/output"
	"github.com/semmy-space/credstore/internal/secrets"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// CLI is the root command structure
type CLI struct {
	Globals

	CredentialStore CredentialStoreCmd            `cmd:"" name:"credential-store" help:"Retrieve or manage secrets in a credential store"`
	Mask            MaskCmd                       `cmd:"" help:"Mask a secret into a MASK- token"`
	Unmask          UnmaskCmd                     `cmd:"" help:"Print the secret held by a MASK- token"`
	Config          ConfigCmd                     `cmd:"" help:"Configuration commands"`
	Completion      kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
	Version         VersionCmd                    `cmd:"" help:"Show version information"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// Options configures a single Execute call
type Options struct {
	Version    string
	Provider   *secrets.Provider
	ConfigPath string // empty means the XDG config path
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// session is what the AfterApply hook resolves for the selected command
type session struct {
	opts      *Options
	streams   *Streams
	formatter output.Formatter
}

// exitSignal unwinds kong's Exit calls (help, completion) back into Execute
type exitSignal int

// AfterApply hook runs once flags are applied, before the command
// It loads config, creates formatter and logger, and binds dependencies
func (c *CLI) AfterApply(kctx *kong.Context, s *session) error {
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		return output.NewCLIError(output.KindConfig, "unable to load config").
			WithErr(err).
			WithHint("Check " + s.opts.ConfigPath)
	}

	s.formatter = output.New(c.ResolvedOutput(cfg, s.streams.Out), s.streams.Out, s.streams.Err)
	logger := logging.New(s.streams.Err, c.Verbose)
	ctx := logging.WithCommand(context.Background(), kctx.Command())

	kctx.Bind(cfg)
	kctx.Bind(&FormatterProvider{Formatter: s.formatter})
	kctx.Bind(&c.Globals)
	kctx.Bind(logger)
	kctx.BindTo(ctx, (*context.Context)(nil))

	logger.DebugContext(ctx, "config loaded", "path", cfg.Path())
	return nil
}

// Execute parses args, runs the selected command and returns the process exit code.
// Any failure prints the error and the usage text to stderr and yields ExitFailure.
func Execute(args []string, opts Options) (code int) {
	if opts.Provider == nil {
		opts.Provider = secrets.NewProvider()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.ConfigPath()
	}

	s := &session{
		opts:    &opts,
		streams: &Streams{In: opts.Stdin, Out: opts.Stdout, Err: opts.Stderr},
	}

	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(exitSignal)
			if !ok {
				panic(r)
			}
			code = int(sig)
		}
	}()

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("credstore"),
		kong.Description("Retrieves secrets from encrypted credential stores and masks passwords"),
		kong.Writers(opts.Stdout, opts.Stderr),
		kong.Exit(func(code int) { panic(exitSignal(code)) }),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":     opts.Version,
			"store_types": strings.Join(opts.Provider.Types(), ", "),
		},
		kong.Bind(opts.Provider, s, s.streams),
	)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return output.ExitFailure
	}

	kongplete.Complete(parser,
		kongplete.WithPredictor("file", complete.PredictFiles("*")),
	)

	kctx, err := parser.Parse(args)
	if err != nil {
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) {
			kctx = parseErr.Context
		}
		return s.fail(parser, kctx, err)
	}

	if err := kctx.Run(); err != nil {
		return s.fail(parser, kctx, err)
	}

	return output.ExitOK
}

// fail prints err and the usage of the selected command to stderr
func (s *session) fail(parser *kong.Kong, kctx *kong.Context, err error) int {
	formatter := s.formatter
	if formatter == nil {
		formatter = output.New("plain", s.streams.Out, s.streams.Err)
	}
	output.PrintError(formatter, err)

	parser.Stdout = s.streams.Err
	if kctx == nil {
		kctx, _ = kong.Trace(parser, nil)
	}
	if kctx != nil {
		_ = kctx.PrintUsage(false)
	}

	var cliErr *output.CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != output.ExitOK {
		return cliErr.ExitCode
	}
	return output.ExitFailure
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(kctx *kong.Context, streams *Streams) error {
	version := kctx.Model.Vars()["version"]
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(streams.Out, "credstore version %s\n", version)
	return nil
}
