package main

import (
	"fmt"
	"os"

	"github.com/nspcc-dev/tipbot-contract/common"
	"github.com/urfave/cli"
)

func main() {
	app := newApp()

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tipbotctl"
	app.Usage = "Deploy and audit the Tipbot ledger contract"
	app.Version = versionString(common.Version)

	// global flags
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the YAML configuration file",
		},
		cli.StringFlag{
			Name:  "rpc, r",
			Usage: "Neo RPC server endpoint",
		},
		cli.StringFlag{
			Name:  "contract",
			Usage: "Ledger contract address (Neo address or LE hex)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Logging level (debug, info, warn, error)",
		},
	}

	app.Commands = []cli.Command{
		deployCMD,
		auditCMD,
		watchCMD,
	}

	return app
}

func exitCode(err error) int {
	if e, ok := err.(cli.ExitCoder); ok {
		return e.ExitCode()
	}
	return 1
}

// versionString formats contract version number as 'major.minor.patch'.
func versionString(v int) string {
	return fmt.Sprintf("%d.%d.%d", v/1_000_000, v/1_000%1_000, v%1_000)
}
