// Package vault wires configuration, storage, the vault service and the
// action dispatcher into a runnable command-line application.
package vault

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/logging"
	"github.com/dmitrijs2005/vaultcore/internal/secretx"
	"github.com/dmitrijs2005/vaultcore/internal/vault/actions"
	"github.com/dmitrijs2005/vaultcore/internal/vault/config"
	"github.com/dmitrijs2005/vaultcore/internal/vault/repositories/repomanager"
	"github.com/dmitrijs2005/vaultcore/internal/vault/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	service    *services.VaultService
	dispatcher *actions.Dispatcher
	secrets    secretx.Source
	out        io.Writer
}

// NewApp opens the database named by the config, applies migrations and
// builds the service stack. Close releases the database.
func NewApp(ctx context.Context, c *config.Config, secrets secretx.Source, out io.Writer, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(c.LogLevel, logOut)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	dialect, _ := c.Dialect()

	db, err := sql.Open(dialect.DriverName(), c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewSQLRepositoryManager(dialect)
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	svc := services.NewVaultService(db, m, c, logger)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		service:    svc,
		dispatcher: actions.NewDispatcher(svc),
		secrets:    secrets,
		out:        out,
	}, nil
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run executes one command: args[0] names the action, the rest are its
// flags. The operation is bounded by the configured timeout and cancelled
// on SIGINT/SIGTERM.
func (app *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		app.usage()
		return errors.New("no command given")
	}

	action, err := actions.ParseAction(args[0])
	if err != nil {
		app.usage()
		return err
	}

	req, cmd, err := app.parseRequest(action, args[1:])
	if err != nil {
		return err
	}
	if cmd.file != nil {
		defer cmd.file.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, app.config.OperationTimeout)
	defer cancel()
	app.initSignalHandler(ctx, cancel)

	if err := app.unlock(ctx, action, &req, cmd); err != nil {
		return err
	}
	defer req.Key.Destroy()
	defer req.NewKey.Destroy()

	res, err := app.dispatcher.Execute(ctx, action, req)
	if err != nil {
		app.logger.Debug(ctx, "command failed", "action", action.String(), "user_id", req.UserID, "error", err)
		return err
	}

	app.render(action, req, res)
	return nil
}

type command struct {
	file     *os.File
	password bool
}

func (app *App) parseRequest(action actions.Action, args []string) (actions.Request, command, error) {
	var (
		req        actions.Request
		cmd        command
		ciphertext string
		path       string
	)

	fs := flag.NewFlagSet(action.String(), flag.ContinueOnError)
	fs.SetOutput(app.out)
	fs.Int64Var(&req.UserID, "u", 0, "user id")
	fs.StringVar(&req.Service, "s", "", "service")
	fs.StringVar(&req.NewService, "n", "", "new service name")
	fs.StringVar(&req.Login, "l", "", "login")
	fs.StringVar(&req.Query, "q", "", "search text")
	fs.IntVar(&req.Offset, "o", 0, "page offset")
	fs.IntVar(&req.Limit, "limit", 0, "page size")
	fs.StringVar(&ciphertext, "id", "", "record handle as printed by records/reveal")
	fs.StringVar(&path, "f", "", "CSV file for import/export (export defaults to stdout)")

	if err := fs.Parse(args); err != nil {
		return req, cmd, err
	}
	if req.UserID == 0 {
		return req, cmd, errors.New("-u is required")
	}

	if ciphertext != "" {
		ct, err := base64.RawURLEncoding.DecodeString(ciphertext)
		if err != nil {
			return req, cmd, fmt.Errorf("bad -id: %w", err)
		}
		req.Ciphertext = ct
	}

	switch action {
	case actions.CreateRecord, actions.UpdateRecord:
		cmd.password = true
	case actions.Import:
		if path == "" {
			return req, cmd, errors.New("-f is required for import")
		}
		f, err := os.Open(path)
		if err != nil {
			return req, cmd, err
		}
		cmd.file, req.In = f, f
	case actions.Export:
		req.Out = app.out
		if path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return req, cmd, err
			}
			cmd.file, req.Out = f, f
		}
	}
	return req, cmd, nil
}

// unlock fills the keys an action needs from the secret source. Secrets are
// wiped as soon as the keys exist.
func (app *App) unlock(ctx context.Context, action actions.Action, req *actions.Request, cmd command) error {
	if cmd.password {
		pw, err := app.secrets.Secret("Record password")
		if err != nil {
			return err
		}
		req.Password = string(pw)
		secretx.Wipe(pw)
	}

	if !action.NeedsKey() && action != actions.Rotate {
		return nil
	}

	secret, err := app.secrets.Secret("Master password")
	if err != nil {
		return err
	}
	defer secretx.Wipe(secret)

	// Verify reports a wrong key instead of failing on it. Rotate checks the
	// old key against every record inside its transaction.
	switch action {
	case actions.Verify:
		req.Key, err = app.service.DeriveKey(ctx, req.UserID, secret)
		return err
	case actions.Rotate:
		req.Key, err = app.service.DeriveKey(ctx, req.UserID, secret)
	default:
		req.Key, _, err = app.service.Unlock(ctx, req.UserID, secret)
	}
	if err != nil {
		return err
	}

	if action == actions.Rotate {
		next, err := app.secrets.Secret("New master password")
		if err != nil {
			req.Key.Destroy()
			return err
		}
		defer secretx.Wipe(next)

		if err := cryptox.CheckSecretStrength(next); err != nil {
			req.Key.Destroy()
			return err
		}
		req.NewKey, err = app.service.DeriveKey(ctx, req.UserID, next)
		if err != nil {
			req.Key.Destroy()
			return err
		}
	}
	return nil
}

func handle(ct []byte) string {
	return base64.RawURLEncoding.EncodeToString(ct)
}

func (app *App) render(action actions.Action, req actions.Request, res *actions.Result) {
	w := app.out
	switch action {
	case actions.Provision:
		fmt.Fprintf(w, "user %d ready\n", req.UserID)
	case actions.Verify:
		fmt.Fprintln(w, res.Verification)
	case actions.CreateRecord, actions.UpdateRecord:
		fmt.Fprintf(w, "saved %s\n", handle(res.Record.Ciphertext))
	case actions.ListServices:
		for _, s := range res.Services.Items {
			fmt.Fprintln(w, s)
		}
		if res.Services.HasMore {
			fmt.Fprintf(w, "-- more: -o %d\n", res.Services.Next().Offset)
		}
	case actions.ListRecords:
		for _, r := range res.Records.Items {
			fmt.Fprintf(w, "%s\t%s\n", r.Service, handle(r.Ciphertext))
		}
		if res.Records.HasMore {
			fmt.Fprintf(w, "-- more: -o %d\n", res.Records.Next().Offset)
		}
	case actions.RevealRecords:
		for _, r := range res.Revealed.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Login, r.Password, handle(r.Ciphertext))
		}
		if res.Revealed.HasMore {
			fmt.Fprintf(w, "-- more: -o %d\n", res.Revealed.Next().Offset)
		}
	case actions.SearchServices:
		for _, s := range res.Matches {
			fmt.Fprintln(w, s)
		}
	case actions.Import:
		fmt.Fprintf(w, "imported %d, malformed %d, invalid %d\n", res.Import.Imported, len(res.Import.Malformed), res.Import.Invalid)
		for _, s := range res.Import.Malformed {
			fmt.Fprintf(w, "  line %d: %s\n", s.Line, s.Reason)
		}
	case actions.Export:
		if req.Out != app.out {
			fmt.Fprintf(w, "exported %d\n", res.Count)
		}
	default:
		fmt.Fprintf(w, "%s: %d\n", action, res.Count)
	}
}

func (app *App) usage() {
	fmt.Fprintln(app.out, "usage: vaultctl [config flags] <command> -u <user id> [command flags]")
	fmt.Fprint(app.out, "commands:")
	for _, a := range actions.All() {
		fmt.Fprint(app.out, " ", a)
	}
	fmt.Fprintln(app.out)
}
