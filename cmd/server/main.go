package main

import (
	"atlas/internal/server"
	"atlas/internal/util"
	"atlas/pkg/logger"
	"atlas/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
