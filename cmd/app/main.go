package main

import (
	"log"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/bootstrap"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
