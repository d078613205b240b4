package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/priointimate/PrioBusiness/internal/app"
	"github.com/priointimate/PrioBusiness/internal/config"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: server [-config path] [serve|migrate|create-admin]

commands:
  serve          run the HTTP API (default)
  migrate        apply database migrations and exit
  create-admin   create a super admin (-username, -password)
`

func main() {
	if errEnv := godotenv.Load(); errEnv != nil {
		log.Debug("no .env file found")
	}

	fs := flag.NewFlagSet("server", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	configPath := fs.String("config", "", "path to config.yaml (default $PRIO_CONFIG or ./config.yaml)")
	username := fs.String("username", "", "admin username for create-admin")
	password := fs.String("password", "", "admin password for create-admin (default $PRIO_ADMIN_PASSWORD)")
	_ = fs.Parse(os.Args[1:])

	command := "serve"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
		// Flags may follow the command.
		_ = fs.Parse(fs.Args()[1:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.AppConfig{ConfigPath: *configPath}
	var err error
	switch command {
	case "serve":
		err = app.RunServer(ctx, cfg)
	case "migrate":
		err = app.Migrate(ctx, cfg)
		if err == nil {
			log.Info("migrations applied")
		}
	case "create-admin":
		pass := *password
		if pass == "" {
			pass = os.Getenv("PRIO_ADMIN_PASSWORD")
		}
		err = app.CreateAdmin(ctx, cfg, *username, pass)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Errorf("%s failed", command)
		os.Exit(1)
	}
}
