package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cyc/config"
	"cyc/state"
)

// configToStdout reports whether dumpconfig writes to stdout.
func configToStdout(cmd *cli.Command) bool {
	return cmd.Args().Len() == 0
}

// dumpConfig is the action of dumpconfig command.
func dumpConfig(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("dumpconfig")

	which, data, err := "actual", []byte(nil), error(nil)
	if cmd.Bool("default") {
		which = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get %s configuration: %w", which, err)
	}

	if configToStdout(cmd) {
		log.Debug("Writing configuration", zap.String("state", which), zap.String("to", "STDOUT"))
		if _, err := env.Stdout.Write(data); err != nil {
			return fmt.Errorf("unable to write configuration: %w", err)
		}
		return nil
	}

	dst := cmd.Args().First()
	if cmd.Args().Len() > 1 {
		log.Warn("Only one destination is expected", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	log.Info("Writing configuration", zap.String("state", which), zap.String("to", dst))
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("unable to write configuration to %q: %w", dst, err)
	}
	return nil
}
