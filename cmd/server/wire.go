//go:build wireinject

package main

import (
	"genai-console/internal/domain"
	"genai-console/internal/infrastructure"
	"genai-console/internal/interfaces/httpserver"
	"genai-console/internal/interfaces/httpserver/routes"

	"github.com/google/wire"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		httpserver.NewHttpServer,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
