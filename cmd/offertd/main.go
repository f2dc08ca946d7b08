package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/clock"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/migration"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/observability"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/server"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and seed data before anything serves traffic.
		migration.Module,

		// HTTP surface plus every feature module it serves.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
