// Command omikuji runs the Omikuji oracle daemon, and provides a "key"
// subcommand family for managing network private keys in the configured
// SecretStore backend. Authored in the teacher's idiom using its declared
// CLI stack (urfave/cli, x/term, tablewriter, fatih/color, peterh/liner) —
// the teacher repo itself ships no command-line entrypoint, so this file
// has no direct teacher source; it follows the shape of tos-network-gtos's
// cmd/toskey, the pack's other key-management CLI.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/secrets"
)

var configFlag = cli.StringFlag{
	Name:  "config, c",
	Usage: "path to the Omikuji YAML configuration file",
}

var privateKeyEnvFlag = cli.StringFlag{
	Name:  "private-key-env, p",
	Usage: "env var EnvStore falls back to when OMIKUJI_PRIVATE_KEY_<NETWORK> isn't set",
	Value: "OMIKUJI_PRIVATE_KEY",
}

func configPath(c *cli.Context) (string, error) {
	if p := c.GlobalString("config"); p != "" {
		return p, nil
	}
	return config.DefaultConfigPath()
}

// privateKeyEnvVar returns the -p/--private-key-env override, or
// secrets.DefaultPrivateKeyEnvVar if unset.
func privateKeyEnvVar(c *cli.Context) string {
	if v := c.GlobalString("private-key-env"); v != "" {
		return v
	}
	return secrets.DefaultPrivateKeyEnvVar
}

func main() {
	app := cli.NewApp()
	app.Name = "omikuji"
	app.Usage = "keep on-chain price feeds in sync with off-chain data sources"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{configFlag, privateKeyEnvFlag}
	app.Action = runAction
	app.Commands = []cli.Command{keyCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "omikuji:", err)
		os.Exit(1)
	}
}
