// Package main is the entry point of the Itinera service.
// It initializes the Kratos application with its HTTP server.
package main

import (
	"context"
	"flag"
	"os"

	"Itinera/internal/biz"
	"Itinera/internal/conf"
	zapLogger "Itinera/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "itinera"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, probe *biz.StorageProbe, rc *conf.Resilience) *kratos.App {
	probeCron := NewStorageProbeCron(probe, rc, logger)

	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
		kratos.AfterStart(func(context.Context) error {
			if probeCron != nil {
				probeCron.Start()
			}
			return nil
		}),
		kratos.BeforeStop(func(context.Context) error {
			if probeCron != nil {
				<-probeCron.Stop().Done()
			}
			return nil
		}),
	)
}

func main() {
	flag.Parse()

	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := log.With(zapLogger.NewKratosAdapter(zapLog),
		"service.id", id,
		"service.version", Version,
	)

	zapLogger.NewLogHelper(logger).Startup("Itinera service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"http.addr", bc.Server.Http.Addr,
		"upstream.provider", bc.Upstream.Provider,
		"cache.url", bc.Data.Cache.URL,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Upstream, bc.Resilience, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
