// Command mngr is a small administration tool for PostgreSQL databases: it
// reads the system catalog once and then lists, creates and edits rows of
// the tables a configured scope makes visible.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/config"
	"github.com/koustreak/mngr/internal/database/postgres"
	"github.com/koustreak/mngr/internal/logger"
)

// Context carries the global flags to every command.
type Context struct {
	Config  string
	Verbose bool
}

// CLI represents the command-line interface
var CLI struct {
	Config  string     `help:"Configuration file path" default:"mngr.yaml" short:"c"`
	Verbose bool       `help:"Enable debug logging" short:"v"`
	Serve   ServeCmd   `cmd:"" help:"Serve the JSON API"`
	Inspect InspectCmd `cmd:"" help:"Print the visible schemas, tables, columns and constraints"`
	SQL     SQLCmd     `cmd:"" name:"sql" help:"Print the statement a record operation would run"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("mngr"),
		kong.Description("PostgreSQL table administration"),
	)

	appCtx := &Context{Config: CLI.Config, Verbose: CLI.Verbose}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs: the configuration, a logger, a database
// connection and a loaded catalog.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *postgres.Driver
	store *catalog.Store
}

// open loads everything a command needs. A non-nil logOut overrides where
// log lines go, so commands that print results keep stdout clean.
func (c *Context) open(ctx context.Context, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LoggerConfig()
	if c.Verbose {
		logCfg.Level = "debug"
	}
	if logOut != nil {
		logCfg.Output = logOut
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	db, err := postgres.New(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, err
	}

	store := catalog.NewStore(db, cfg.LoadOptions(), log)
	if _, err := store.Reload(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &env{cfg: cfg, log: log, db: db, store: store}, nil
}

func (e *env) Close() {
	e.db.Close()
}
