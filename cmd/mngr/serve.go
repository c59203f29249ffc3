package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/mngr/internal/records"
	"github.com/koustreak/mngr/internal/server"
)

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides server.addr"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := ctx.open(runCtx, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := e.cfg.Server
	if s.Addr != "" {
		cfg.Addr = s.Addr
	}

	svc := records.NewService(e.db, e.store, records.Options{
		PageSize:     cfg.PageSize,
		QueryTimeout: e.cfg.Database.QueryTimeout,
		Logger:       e.log,
	})
	return server.New(svc, e.store, e.log).Run(runCtx, cfg)
}
