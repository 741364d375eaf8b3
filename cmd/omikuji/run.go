package main

import (
	"context"

	"github.com/urfave/cli"

	"github.com/ijonas/omikuji/internal/logger"
	"github.com/ijonas/omikuji/internal/supervisor"
)

// runAction is the app's default action: load the configured YAML file and
// run the supervisor until a termination signal arrives.
func runAction(c *cli.Context) error {
	path, err := configPath(c)
	if err != nil {
		return err
	}
	logger.Infof("starting omikuji with config %s", path)
	return supervisor.Run(context.Background(), path, privateKeyEnvVar(c))
}
