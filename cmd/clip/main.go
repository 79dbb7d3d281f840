package main

import (
	"log"

	"github.com/MrSnakeDoc/clip/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ clip failed to start: %v", err)
	}
}
