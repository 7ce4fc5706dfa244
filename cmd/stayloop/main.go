package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stayloop/stayloop/internal/clock"
	"github.com/stayloop/stayloop/internal/migration"
	"github.com/stayloop/stayloop/internal/observability"
	"github.com/stayloop/stayloop/internal/server"
	"github.com/stayloop/stayloop/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// HTTP surface plus every domain module it serves
		server.Module,

		migration.Module,
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
