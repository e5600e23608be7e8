package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/avstrong/hotel/internal/app"
	"github.com/avstrong/hotel/internal/logger"
)

func main() {
	// Replaced by the configured logger once the config is loaded.
	l := logger.New(logrus.StandardLogger())

	var exitCode int

	if err := app.Run(l); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	os.Exit(exitCode)
}
