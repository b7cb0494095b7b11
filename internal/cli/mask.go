package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/awnumar/memguard"

	"github.com/semmy-space/credstore/internal/config"
	"github.com/semmy-space/credstore/internal/mask"
	"github.com/semmy-space/credstore/internal/output"
)

// MaskCmd implements the mask command
type MaskCmd struct {
	Secret    string `help:"Secret to mask (prompted when omitted)" short:"x"`
	Salt      string `help:"8 character salt (config mask_salt, else random)" short:"s"`
	Iteration *int   `help:"Iteration count (config mask_iteration, else 10000)" short:"i"`
}

// Run executes the mask command
func (cmd *MaskCmd) Run(ctx context.Context, cfg *config.Config, globals *Globals, streams *Streams, logger *slog.Logger) error {
	var secret []byte
	if cmd.Secret != "" {
		secret = []byte(cmd.Secret)
	} else {
		var err error
		if secret, err = promptSecret(streams, globals.NoInput); err != nil {
			return err
		}
	}
	defer memguard.WipeBytes(secret)

	salt := cmd.Salt
	if salt == "" {
		salt = cfg.MaskSalt
	}
	if salt == "" {
		var err error
		if salt, err = mask.RandomSalt(); err != nil {
			return output.NewCLIError(output.KindMaskFormat, "unable to generate salt").WithErr(err)
		}
	}

	// An explicit flag is passed through as given, zero included
	var iterations int
	switch {
	case cmd.Iteration != nil:
		iterations = *cmd.Iteration
	case cfg.MaskIteration != 0:
		iterations = cfg.MaskIteration
	default:
		iterations = mask.DefaultIterations
	}

	token, err := mask.Mask(secret, salt, iterations)
	if err != nil {
		return maskError(err)
	}

	logger.DebugContext(ctx, "secret masked", "iterations", iterations)
	fmt.Fprintln(streams.Out, token)
	return nil
}

// UnmaskCmd implements the unmask command
type UnmaskCmd struct {
	Token string `arg:"" help:"Masked token (MASK-<ciphertext>;<salt>;<iterations>)"`
}

// Run executes the unmask command, printing the secret without a trailing newline
func (cmd *UnmaskCmd) Run(streams *Streams) error {
	secret, err := mask.Unmask(cmd.Token)
	if err != nil {
		return maskError(err)
	}
	defer memguard.WipeBytes(secret)

	if _, err := streams.Out.Write(secret); err != nil {
		return output.NewCLIError(output.KindMaskFormat, "unable to write secret").WithErr(err)
	}
	return nil
}

// maskError maps codec errors to CLI errors
func maskError(err error) error {
	if errors.Is(err, mask.ErrInvalidSalt) || errors.Is(err, mask.ErrInvalidIteration) {
		return output.NewCLIError(output.KindArgument, "invalid masking parameters").WithErr(err)
	}
	return output.NewCLIError(output.KindMaskFormat, "unable to unmask password").WithErr(err)
}
