package main

import (
	"github.com/OFFIS-RIT/kgchat/internal/server"
	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
	"github.com/OFFIS-RIT/kgchat/pkg/logger/console"
)

func initLogger() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: console.ParseFormat(util.GetEnv("LOG_FORMAT")),
	}))
}

func main() {
	// The first logger sees only the process environment; it is replaced
	// once .env has been read.
	initLogger()
	util.LoadEnv()
	initLogger()

	server.Init()
}
