// Package main is the entry point for the medrag knowledge base builder.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/medrag/cmd/medrag-ingest/app"
)

func main() {
	app.NewApp().Run()
}
