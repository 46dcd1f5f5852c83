package main

import (
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	"github.com/billora/billora/internal/migration"
	"github.com/billora/billora/internal/observability"
	"github.com/billora/billora/internal/server"
	"github.com/billora/billora/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
