package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/awnumar/memguard"
	"golang.org/x/term"

	"github.com/semmy-space/credstore/internal/config"
	"github.com/semmy-space/credstore/internal/logging"
	"github.com/semmy-space/credstore/internal/mask"
	"github.com/semmy-space/credstore/internal/output"
	"github.com/semmy-space/credstore/internal/secrets"
)

// CredentialStoreCmd implements the credential-store command
type CredentialStoreCmd struct {
	Location string `help:"Credential store location" short:"l" required:"" env:"CREDSTORE_LOCATION" predictor:"file"`
	Password string `help:"Credential store password, clear or MASK- token" short:"p" required:"" env:"CREDSTORE_PASSWORD"`
	Type     string `help:"Credential store type (${store_types})" env:"CREDSTORE_TYPE"`
	Create   bool   `help:"Create the credential store if it does not exist" short:"c"`

	Retrieve string `help:"Print the clear text secret stored under an alias" short:"g" xor:"action" placeholder:"ALIAS"`
	Add      string `help:"Store a secret under an alias" short:"a" xor:"action" placeholder:"ALIAS"`
	Secret   string `help:"Secret to store with --add (prompted when omitted)" short:"x"`
	Remove   string `help:"Remove an alias" short:"r" xor:"action" placeholder:"ALIAS"`
	Exists   string `help:"Exit 0 if the alias exists, 1 otherwise" short:"e" xor:"action" placeholder:"ALIAS"`
	Aliases  bool   `help:"List the aliases in the store" xor:"action"`
}

type storeAction int

const (
	actionRetrieve storeAction = iota + 1
	actionAdd
	actionRemove
	actionExists
	actionAliases
)

func (a storeAction) String() string {
	switch a {
	case actionRetrieve:
		return "retrieve"
	case actionAdd:
		return "add"
	case actionRemove:
		return "remove"
	case actionExists:
		return "exists"
	case actionAliases:
		return "aliases"
	default:
		return "none"
	}
}

// action returns the single requested action and its alias
func (cmd *CredentialStoreCmd) action() (storeAction, string, error) {
	var (
		selected storeAction
		alias    string
		count    int
	)
	pick := func(a storeAction, set bool, value string) {
		if set {
			selected, alias = a, value
			count++
		}
	}
	pick(actionRetrieve, cmd.Retrieve != "", cmd.Retrieve)
	pick(actionAdd, cmd.Add != "", cmd.Add)
	pick(actionRemove, cmd.Remove != "", cmd.Remove)
	pick(actionExists, cmd.Exists != "", cmd.Exists)
	pick(actionAliases, cmd.Aliases, "")

	switch {
	case count == 0:
		return 0, "", output.NewCLIError(output.KindArgument, "no action given").
			WithHint("Pass one of --retrieve, --add, --remove, --exists or --aliases")
	case count > 1:
		return 0, "", output.NewCLIError(output.KindArgument, "only one action may be given per invocation")
	}

	if cmd.Secret != "" && selected != actionAdd {
		return 0, "", output.NewCLIError(output.KindArgument, "--secret can only be used with --add")
	}
	return selected, alias, nil
}

// storeType resolves the adapter: flag or env > config store_type > provider default
func (cmd *CredentialStoreCmd) storeType(cfg *config.Config) string {
	if cmd.Type != "" {
		return cmd.Type
	}
	return cfg.StoreType
}

// password returns the store passphrase, unmasking a MASK- token
func (cmd *CredentialStoreCmd) password() (string, error) {
	if !mask.IsMasked(cmd.Password) {
		return cmd.Password, nil
	}
	clearPw, err := mask.Unmask(cmd.Password)
	if err != nil {
		return "", maskError(err)
	}
	defer memguard.WipeBytes(clearPw)
	return string(clearPw), nil
}

// Run executes the credential-store command
func (cmd *CredentialStoreCmd) Run(ctx context.Context, provider *secrets.Provider, cfg *config.Config, fp *FormatterProvider, globals *Globals, streams *Streams, logger *slog.Logger) error {
	action, alias, err := cmd.action()
	if err != nil {
		return err
	}

	// Resolve the secret before touching the store so a failed prompt leaves it unopened
	var secret []byte
	if action == actionAdd {
		if cmd.Secret != "" {
			secret = []byte(cmd.Secret)
		} else if secret, err = promptSecret(streams, globals.NoInput); err != nil {
			return err
		}
		defer memguard.WipeBytes(secret)
	}

	password, err := cmd.password()
	if err != nil {
		return err
	}

	ctx = logging.WithLocation(ctx, cmd.Location)
	storeType := cmd.storeType(cfg)
	logger.DebugContext(ctx, "opening credential store", "type", storeType, "create", cmd.Create, "action", action.String())

	store, err := provider.Open(storeType, cmd.Location, password, cmd.Create)
	if err != nil {
		return storeError(err)
	}
	defer store.Close()

	switch action {
	case actionRetrieve:
		return retrieve(store, alias, streams)
	case actionAdd:
		if err := secrets.StoreSecret(store, alias, secret); err != nil {
			return storeError(err)
		}
		if err := secrets.Flush(store); err != nil {
			return storeError(err)
		}
		logger.DebugContext(ctx, "secret stored", "alias", alias)
		fmt.Fprintf(streams.Err, "Stored alias %q\n", alias)
	case actionRemove:
		if err := secrets.RemoveSecret(store, alias); err != nil {
			return storeError(err)
		}
		if err := secrets.Flush(store); err != nil {
			return storeError(err)
		}
		logger.DebugContext(ctx, "secret removed", "alias", alias)
		fmt.Fprintf(streams.Err, "Removed alias %q\n", alias)
	case actionExists:
		ok, err := secrets.Exists(store, alias)
		if err != nil {
			return storeError(err)
		}
		if !ok {
			return output.NewCLIError(output.KindSecretNotFound, fmt.Sprintf("alias %q does not exist", alias))
		}
	case actionAliases:
		aliases, err := secrets.Aliases(store)
		if err != nil {
			return storeError(err)
		}
		return fp.Formatter.PrintList(aliases, []output.Column{{Name: "ALIAS", Key: "alias"}})
	}

	return nil
}

// retrieve writes the clear secret to stdout without a trailing newline
func retrieve(store secrets.CredentialStore, alias string, streams *Streams) error {
	secret, ok, err := secrets.RetrieveSecret(store, alias)
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return output.NewCLIError(output.KindSecretNotFound, "no secret found for requested alias").
			WithHint(fmt.Sprintf("List the aliases with --aliases; %q holds no clear text password", alias))
	}
	defer memguard.WipeBytes(secret)

	if _, err := streams.Out.Write(secret); err != nil {
		return output.NewCLIError(output.KindStore, "unable to write secret").WithErr(err)
	}
	return nil
}

// promptSecret reads a secret from the terminal without echo
func promptSecret(streams *Streams, noInput bool) ([]byte, error) {
	missing := output.NewCLIError(output.KindArgument, "missing secret").
		WithHint("Pass --secret, or run in a terminal to be prompted")

	f, ok := streams.In.(*os.File)
	if noInput || !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, missing
	}

	fmt.Fprint(streams.Err, "Secret: ")
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(streams.Err)
	if err != nil {
		return nil, output.NewCLIError(output.KindArgument, "unable to read secret").WithErr(err)
	}
	if len(secret) == 0 {
		return nil, missing
	}
	return secret, nil
}

// storeError maps facade errors to CLI errors
func storeError(err error) error {
	cliErr := output.NewCLIError(output.KindStore, "unable to access credential store").WithErr(err)

	switch {
	case secrets.IsNotFound(err):
		cliErr.Kind = output.KindStoreNotFound
		cliErr.WithHint("Pass --create to create a new credential store")
	case errors.Is(err, secrets.ErrUnsupportedType), errors.Is(err, secrets.ErrInvalidAlias), errors.Is(err, secrets.ErrEmptyPassword):
		cliErr.Kind = output.KindArgument
	case errors.Is(err, secrets.ErrAliasNotFound):
		cliErr.Kind = output.KindSecretNotFound
	case errors.Is(err, secrets.ErrBadPassword):
		cliErr.WithHint("Check --password")
	}

	return cliErr
}
