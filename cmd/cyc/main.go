package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"cyc/common"
	"cyc/convert"
	"cyc/misc"
	"cyc/state"
)

const convertHelp = `%s
SOURCE:
    "-"                               markup is read from STDIN, HTML is written to STDOUT, DESTINATION is ignored
    "[dir/]notes.cy"                  single file, any extension is accepted unless content looks binary
    "[dir/]tree"                      every source file under directory (symbolic links are not followed)
    "[dir/]pack.zip"                  every source file in archive
    "[dir/]pack.zip/inner/path"       source files under path inside archive, or a single file in it

    Source files are recognized by extensions listed in document.sources of
    configuration. Archives found in directories are processed, archives
    inside archives are not.

DESTINATION:
    directory for produced files, current working directory when absent;
    names are derived from source names and document.extension
`

const dumpconfigHelp = `%s
DESTINATION:
    file to write configuration to, STDOUT when absent

Without --default the configuration in effect is written: embedded defaults
merged with the file given by --config.
`

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "translates CY markup into HTML fragments or pages",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          loadEnv,
		After:           releaseEnv,
		OnUsageError:    passUsageError,
		ExitErrHandler:  logFailure,
		CommandNotFound: unknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "write debug report archive with logs, sources structure and results"},
		},
		Commands: []*cli.Command{
			{
				Name:         "convert",
				Usage:        "Translates CY markup file(s) to HTML",
				ArgsUsage:    "SOURCE [DESTINATION]",
				OnUsageError: passUsageError,
				Before:       withLogging(convert.WritesStdout, convert.Prepare),
				Action:       convert.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Value: common.OutputModeFragment.String(),
						Usage: "output `MODE`: " + strings.Join(common.OutputModeNames(), " or ") + ", overrides document.mode"},
					&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "put all results directly into DESTINATION"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing result files"},
				},
				CustomHelpTemplate: fmt.Sprintf(convertHelp, cli.CommandHelpTemplate),
			},
			{
				Name:         "dumpconfig",
				Usage:        "Writes configuration (YAML)",
				ArgsUsage:    "[DESTINATION]",
				OnUsageError: passUsageError,
				Before:       withLogging(configToStdout, nil),
				Action:       dumpConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "write embedded default configuration"},
				},
				CustomHelpTemplate: fmt.Sprintf(dumpconfigHelp, cli.CommandHelpTemplate),
			},
		},
	}
}

func main() {
	// interrupt stops conversion between files
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	err := newApp().Run(ctx, os.Args)
	stop()

	if err != nil {
		if !state.EnvFromContext(ctx).ErrLogged {
			fmt.Fprintf(os.Stderr, "%s: %v\n", misc.GetAppName(), err)
		}
		os.Exit(1)
	}
}
