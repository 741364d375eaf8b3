package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/ijonas/omikuji/internal/config"
	"github.com/ijonas/omikuji/internal/secrets"
	"github.com/ijonas/omikuji/internal/supervisor"
)

var keyCommand = cli.Command{
	Name:  "key",
	Usage: "manage network private keys in the configured SecretStore backend",
	Subcommands: []cli.Command{
		keyImportCommand,
		keyListCommand,
		keyRemoveCommand,
		keyExportCommand,
		keyMigrateCommand,
	},
}

var networkFlag = cli.StringFlag{Name: "network", Usage: "network name, as configured under networks:"}
var keyFlag = cli.StringFlag{Name: "key", Usage: "private key value (prompted on stdin if neither --key nor --file given)"}
var fileFlag = cli.StringFlag{Name: "file", Usage: "path to a file containing the private key"}
var serviceFlag = cli.StringFlag{Name: "service", Usage: "override the configured keyring service name"}

// storeForService opens the configured SecretStore, optionally overriding its
// keyring service name with --service.
func storeForService(c *cli.Context) (secrets.Store, error) {
	path, err := configPath(c)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if svc := c.String("service"); svc != "" {
		cfg.KeyStorage.Keyring.Service = svc
	}
	return supervisor.BuildSecretStore(cfg.KeyStorage, privateKeyEnvVar(c))
}

func requireNetwork(c *cli.Context) (string, error) {
	network := c.String("network")
	if network == "" {
		return "", cli.NewExitError("--network is required", 1)
	}
	return network, nil
}

var keyImportCommand = cli.Command{
	Name:  "import",
	Usage: "import a private key for a network",
	Flags: []cli.Flag{networkFlag, keyFlag, fileFlag, serviceFlag},
	Action: func(c *cli.Context) error {
		network, err := requireNetwork(c)
		if err != nil {
			return err
		}
		store, err := storeForService(c)
		if err != nil {
			return err
		}

		key, err := resolveKeyInput(c, network)
		if err != nil {
			return err
		}

		if err := store.Put(context.Background(), network, key); err != nil {
			return err
		}
		color.Green("key imported for network %q (backend: %s)", network, store.Backend())
		return nil
	},
}

// resolveKeyInput returns the key to import: --key, --file's contents, or (if
// neither is given) a password prompt read from stdin without echo, per
// spec.md §6's "prompt if neither key nor file given".
func resolveKeyInput(c *cli.Context, network string) ([]byte, error) {
	if k := c.String("key"); k != "" {
		return []byte(strings.TrimSpace(k)), nil
	}
	if path := c.String("file"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return []byte(strings.TrimSpace(string(raw))), nil
	}

	fmt.Fprintf(os.Stderr, "private key for %s: ", network)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return nil, cli.NewExitError("no key entered", 1)
	}
	return []byte(key), nil
}

var keyListCommand = cli.Command{
	Name:  "list",
	Usage: "list networks with a stored key",
	Flags: []cli.Flag{serviceFlag},
	Action: func(c *cli.Context) error {
		store, err := storeForService(c)
		if err != nil {
			return err
		}
		networks, err := store.List(context.Background())
		if errors.Is(err, secrets.ErrUnsupported) {
			color.Yellow("backend %q does not support listing", store.Backend())
			return nil
		}
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Network", "Backend"})
		for _, n := range networks {
			table.Append([]string{n, store.Backend()})
		}
		table.Render()
		return nil
	},
}

var keyRemoveCommand = cli.Command{
	Name:  "remove",
	Usage: "remove a network's stored key, after interactive confirmation",
	Flags: []cli.Flag{networkFlag, serviceFlag},
	Action: func(c *cli.Context) error {
		network, err := requireNetwork(c)
		if err != nil {
			return err
		}
		store, err := storeForService(c)
		if err != nil {
			return err
		}

		if !confirm(fmt.Sprintf("remove the stored key for %q? [y/N] ", network)) {
			color.Yellow("aborted")
			return nil
		}
		if err := store.Delete(context.Background(), network); err != nil {
			return err
		}
		color.Green("key removed for network %q", network)
		return nil
	},
}

var keyExportCommand = cli.Command{
	Name:  "export",
	Usage: "print a network's stored private key to stdout",
	Flags: []cli.Flag{networkFlag, serviceFlag},
	Action: func(c *cli.Context) error {
		network, err := requireNetwork(c)
		if err != nil {
			return err
		}
		store, err := storeForService(c)
		if err != nil {
			return err
		}

		if !confirm(fmt.Sprintf("print the private key for %q to stdout? [y/N] ", network)) {
			color.Yellow("aborted")
			return nil
		}
		key, err := store.Get(context.Background(), network)
		if err != nil {
			return err
		}
		fmt.Println(string(key))
		return nil
	},
}

var keyMigrateCommand = cli.Command{
	Name:  "migrate",
	Usage: "copy every OMIKUJI_PRIVATE_KEY_* (and legacy PRIVATE_KEY) env var key into the configured keyring store",
	Flags: []cli.Flag{serviceFlag},
	Action: func(c *cli.Context) error {
		path, err := configPath(c)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if svc := c.String("service"); svc != "" {
			cfg.KeyStorage.Keyring.Service = svc
		}

		secretCfg := supervisor.SecretConfigFromKeyStorage(cfg.KeyStorage, privateKeyEnvVar(c))
		to, err := secrets.New("keyring", secretCfg)
		if err != nil {
			return fmt.Errorf("opening keyring store: %w", err)
		}

		from := secrets.NewEnvStore(secretCfg.PrivateKeyEnvVar)
		networks, err := from.List(context.Background())
		if err != nil {
			return fmt.Errorf("scanning env vars: %w", err)
		}
		if len(networks) == 0 {
			color.Yellow("no OMIKUJI_PRIVATE_KEY_* or legacy env var keys found")
			return nil
		}

		for _, network := range networks {
			key, err := from.Get(context.Background(), network)
			if err != nil {
				return fmt.Errorf("reading env key for %q: %w", network, err)
			}
			if err := to.Put(context.Background(), network, key); err != nil {
				return fmt.Errorf("writing keyring key for %q: %w", network, err)
			}
			color.Green("migrated key for network %q into keyring", network)
		}
		return nil
	},
}

// confirm prompts prompt on stderr and reads a line via liner, treating any
// answer other than y/yes (case-insensitive) as "no".
func confirm(prompt string) bool {
	line := liner.NewLiner()
	defer line.Close()

	answer, err := line.Prompt(prompt)
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
