package main

import (
	"context"
	"log"
	"os"

	"github.com/akruglov/chatline/internal/buildinfo"
	"github.com/akruglov/chatline/internal/client/app"
	"github.com/akruglov/chatline/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
