//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"Itinera/internal/biz"
	"Itinera/internal/conf"
	"Itinera/internal/data"
	"Itinera/internal/server"
	"Itinera/internal/service"
	"Itinera/pkg/llm"
	"Itinera/pkg/metrics"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Upstream, *conf.Resilience, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		metrics.NewMetrics,
		llm.NewClient,
		wire.Bind(new(biz.UpstreamClient), new(llm.Client)),
		newApp,
	))
}
