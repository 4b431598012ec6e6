package main

import (
	"github.com/slidescribe/backend/internal/server"
	"github.com/slidescribe/backend/internal/util"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	server.Init()
}
