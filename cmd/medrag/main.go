// Package main is the entry point for the medrag inference service.
//
// It serves GET /, GET /api, POST /predict and GET /metrics over a knowledge
// base built beforehand by medrag-ingest.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/medrag/cmd/medrag/app"
)

func main() {
	app.NewApp().Run()
}
