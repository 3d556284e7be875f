package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/casupload/internal/buildinfo"
	"github.com/dmitrijs2005/casupload/internal/client/cli"
	"github.com/dmitrijs2005/casupload/internal/client/config"
	"github.com/dmitrijs2005/casupload/internal/flagx"
)

func main() {

	buildinfo.PrintBuildData(os.Stderr)

	ctx := context.Background()
	cfg := config.LoadConfig()
	files := flagx.Positional(os.Args[1:], config.ValueFlags)

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if len(files) == 0 {
		app.Run(ctx)
		return
	}

	for _, f := range files {
		if err := app.RunOnce(ctx, f); err != nil {
			app.Close()
			os.Exit(1)
		}
	}
}
