package main

import (
	"context"
	"errors"
	"os"

	"github.com/fsdevblog/moviestore/internal/app"
	"github.com/fsdevblog/moviestore/internal/config"
	"github.com/fsdevblog/moviestore/internal/logger"
)

const serviceName = "moviestore"

func main() {
	conf := config.MustLoadConfig(serviceName, os.Args[1:])
	l := logger.New(os.Stdout, serviceName)

	if err := app.New(conf, l, serviceName).Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("graceful shutdown")
			os.Exit(0)
		}
		panic(err)
	}
}
