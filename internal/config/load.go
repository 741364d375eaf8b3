package config

import (
	"os"
	"regexp"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	validatorpkg "github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

var addrPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// DefaultConfigPath mirrors original_source/src/config/parser.rs's
// default_config_path(): ~/.omikuji/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return home + "/.omikuji/config.yaml", nil
}

// Load reads, decodes, defaults and validates the configuration file at path.
// Any failure here is fatal at startup per spec.md §7.
func Load(path string) (*OmikujiConfig, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding config path")
	}
	raw, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}

	var cfg OmikujiConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var structValidator = validatorpkg.New()

// Validate runs struct-tag validation plus the cross-reference and
// domain-specific checks spec.md §3's invariants require (network existence,
// address format, cron parseability of scheduled tasks).
func (c *OmikujiConfig) Validate() error {
	var err error

	if verr := structValidator.Struct(c); verr != nil {
		err = multierr.Append(err, errors.Wrap(verr, "configuration validation error"))
	}

	networkNames := make(map[string]struct{}, len(c.Networks))
	for _, n := range c.Networks {
		networkNames[n.Name] = struct{}{}
	}

	for _, f := range c.Datafeeds {
		if _, ok := networkNames[f.NetworkName]; !ok {
			err = multierr.Append(err, errors.Errorf(
				"datafeed %q references network %q which is not defined", f.Name, f.NetworkName))
		}
		if !addrPattern.MatchString(f.ContractAddress) {
			err = multierr.Append(err, errors.Errorf(
				"datafeed %q has invalid contract address %q", f.Name, f.ContractAddress))
		}
		if !f.ReadContractConfig {
			if f.Decimals == nil || f.MinValue == nil || f.MaxValue == nil {
				err = multierr.Append(err, errors.Errorf(
					"datafeed %q has read_contract_config=false but is missing decimals/min_value/max_value",
					f.Name))
			}
		}
	}

	for _, t := range c.ScheduledTasks {
		if _, ok := networkNames[t.Network]; !ok {
			err = multierr.Append(err, errors.Errorf(
				"scheduled task %q references network %q which is not defined", t.Name, t.Network))
		}
		if verr := ValidateCron(t.Schedule); verr != nil {
			err = multierr.Append(err, errors.Wrapf(verr, "scheduled task %q has invalid schedule", t.Name))
		}
		if !addrPattern.MatchString(t.TargetFunction.ContractAddress) {
			err = multierr.Append(err, errors.Errorf(
				"scheduled task %q target_function has invalid contract address %q",
				t.Name, t.TargetFunction.ContractAddress))
		}
		if t.CheckCondition != nil && !addrPattern.MatchString(t.CheckCondition.ContractAddress) {
			err = multierr.Append(err, errors.Errorf(
				"scheduled task %q check_condition has invalid contract address %q",
				t.Name, t.CheckCondition.ContractAddress))
		}
	}

	return err
}
