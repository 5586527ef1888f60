package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/vaultcore/internal/flagx"
	"github.com/dmitrijs2005/vaultcore/internal/secretx"
	"github.com/dmitrijs2005/vaultcore/internal/vault"
	"github.com/dmitrijs2005/vaultcore/internal/vault/config"
)

func main() {

	ctx := context.Background()
	args := os.Args[1:]
	cfg := config.LoadConfig(args)

	var secrets secretx.Source = secretx.NewTerminal()
	if name := os.Getenv("VAULT_SECRET_ENV"); name != "" {
		secrets = secretx.Env{Var: name}
	}

	app, err := vault.NewApp(ctx, cfg, secrets, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, flagx.StripArgs(args, config.FlagNames))
	_ = app.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}
}
