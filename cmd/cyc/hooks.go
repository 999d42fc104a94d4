package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cyc/config"
	"cyc/misc"
	"cyc/state"
)

// loadEnv runs once command line is parsed. It loads configuration and opens
// debug report; logging is left to the selected command which knows where its
// output goes.
func loadEnv(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	var err error
	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if !cmd.Bool("debug") {
		return ctx, nil
	}
	if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare debug report: %w", err)
	}
	if len(configFile) > 0 {
		if data, err := config.Dump(env.Cfg); err == nil {
			env.Rpt.AttachData("config/"+filepath.Base(configFile), data)
		}
	}
	return ctx, nil
}

// withLogging returns Before hook of a command: logging is set up with
// console output kept off stdout when command result goes there, then next
// hook, if any, is called.
func withLogging(writesStdout func(*cli.Command) bool, next cli.BeforeFunc) cli.BeforeFunc {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		env := state.EnvFromContext(ctx)

		log, err := env.Cfg.Logging.Prepare(env.Rpt, writesStdout(cmd))
		if err != nil {
			return ctx, fmt.Errorf("unable to prepare logs: %w", err)
		}
		env.Log = log
		env.RedirectStdLog()

		env.Log.Debug("Program started", zap.String("command", cmd.Name), zap.Strings("args", os.Args),
			zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))
		if env.Rpt != nil {
			env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
		}
		if !cmd.Root().IsSet("config") {
			env.Log.Info("Using defaults (no configuration file)")
		}

		if next == nil {
			return ctx, nil
		}
		return next(ctx, cmd)
	}
}

// releaseEnv flushes logs, then writes debug report, which picks the log file
// up, and drops unused crash log.
func releaseEnv(ctx context.Context, _ *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if total, failed := env.Rpt.Conversions(); total > 0 {
		env.Log.Info("Debug report summary", zap.String("location", env.Rpt.Name()), zap.Int("converted", total-failed), zap.Int("failed", failed))
	}
	env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()))
	env.RestoreStdLog()

	// from here on errors go to stderr only
	if er := env.Rpt.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to write debug report: %w", er))
	}
	if env.Cfg != nil {
		err = multierr.Append(err, env.Cfg.Logging.ReleasePanicLog())
	}
	return err
}

// logFailure is called before releaseEnv. When log can carry the error it
// is reported there and main stays silent.
func logFailure(ctx context.Context, cmd *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if !env.Log.Core().Enabled(zapcore.ErrorLevel) {
		return
	}
	env.Log.Error("Program ended with error", zap.Error(err))
	env.ErrLogged = true
}

// passUsageError keeps urfave/cli from printing help on usage errors, they
// are reported as any other failure.
func passUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func unknownCommand(_ context.Context, cmd *cli.Command, name string) {
	fmt.Fprintf(os.Stderr, "%s: unknown command %q, see --help\n", cmd.Root().Name, name)
}
