package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/app/users"
	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/scan"
	"github.com/km-arc/go-ioc/framework/storage/natskv"
)

func main() {
	configDir := flag.String("config", ".", "directory holding the property files")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	logFormat := flag.String("log-format", "console", "console or json")
	persist := flag.Bool("nats", false, "keep persisted values in a NATS key-value bucket (persistence.nats.* properties)")
	flag.Parse()

	logger, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := app.Root{
		Name:      "go-ioc-demo",
		Namespace: "github.com/km-arc/go-ioc/app",
		ConfigDir: *configDir,
	}
	if *persist {
		root.Persistence = &component.PersistenceOptIn{EntityNamespace: "github.com/km-arc/go-ioc/app"}
	}

	application, err := app.Run(ctx, root,
		app.WithLogger(logger),
		app.WithCatalog(scan.NewCatalog(users.Classes()...)),
		app.WithModules(
			&providers.ConfigModule{},
			&providers.RoutingModule{},
			&natskv.Module{},
			&providers.InspectModule{},
			&providers.ServerModule{},
		),
	)
	if err != nil {
		var ie *app.InitializationError
		if errors.As(err, &ie) {
			logger.Error("startup failed", zap.String("phase", ie.Phase), zap.Error(ie.Err))
		}
		_ = logger.Sync()
		os.Exit(1)
	}

	<-application.Done()
}
