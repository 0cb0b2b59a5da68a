package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/melbahja/gotlist"
	"github.com/urfave/cli/v2"
)

var version = ""

func main() {

	ctx, cancel := context.WithCancel(context.Background())

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-interruptChan
		cancel()
		signal.Stop(interruptChan)
		log.Fatal("Download aborted.")
	}()

	app := &cli.App{
		Name:            "gotlist",
		Usage:           "Download every file listed in a JSON manifest.",
		UsageText:       "gotlist <manifest-url>",
		Version:         version,
		HideHelpCommand: true,
		Description: "The manifest is a JSON array of {\"url\": string, \"size\": integer} objects.\n" +
			"Settings are read from GOTLIST_* environment variables and the YAML file named by " + gotlist.ConfigEnv + ".",
		Action: func(c *cli.Context) error {
			return run(ctx, c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, c *cli.Context) error {

	if c.NArg() != 1 {
		cli.ShowAppHelp(c)
		return cli.Exit("", 2)
	}

	url := c.Args().First()

	if !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		url = "https://" + url
	}

	cfg, err := gotlist.LoadConfig()

	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	g := gotlist.NewFromConfig(ctx, cfg)

	if _, err := g.Mirror(url); err != nil {
		fmt.Println(err)
		return cli.Exit("", 1)
	}

	return nil
}
