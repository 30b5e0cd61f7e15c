package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "OP_TRX"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   "-",
		EnvVars: prefixEnvVars("INPUT"),
		Usage:   "Path to the engine event stream, or '-' for stdin",
	}
	Output = &cli.StringFlag{
		Name:     "output",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("OUTPUT"),
		Usage:    "Path of the .trx document to write (eg. 'results.trx')",
	}
	RunConfig = &cli.StringFlag{
		Name:    "run-config",
		Value:   "",
		EnvVars: prefixEnvVars("RUN_CONFIG"),
		Usage:   "Path to an optional run metadata file (eg. 'run.yaml')",
	}
	RunName = &cli.StringFlag{
		Name:    "run-name",
		Value:   "",
		EnvVars: prefixEnvVars("RUN_NAME"),
		Usage:   "Run name recorded in the document; overrides the run config file",
	}
	SourcePrefix = &cli.StringFlag{
		Name:    "source-prefix",
		Value:   "",
		EnvVars: prefixEnvVars("SOURCE_PREFIX"),
		Usage:   "Path prefix trimmed from source files in stack-trace text",
	}
	Attachment = &cli.StringSliceFlag{
		Name:    "attachment",
		EnvVars: prefixEnvVars("ATTACHMENT"),
		Usage:   "Attachment path referenced in the result summary; repeatable",
	}
	Follow = &cli.BoolFlag{
		Name:    "follow",
		Value:   false,
		EnvVars: prefixEnvVars("FOLLOW"),
		Usage:   "Rewrite the document on every engine event instead of once at run end",
	}
	Summary = &cli.BoolFlag{
		Name:    "summary",
		Value:   true,
		EnvVars: prefixEnvVars("SUMMARY"),
		Usage:   "Print a results summary table after the run",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: trace, debug, info, warn, error, crit",
	}
)

var requiredFlags = []cli.Flag{
	Output,
}

var optionalFlags = []cli.Flag{
	Input,
	RunConfig,
	RunName,
	SourcePrefix,
	Attachment,
	Follow,
	Summary,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
