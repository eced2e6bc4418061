package main

import (
	"log"

	"github.com/Quranfi-Project/quranfi-web/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ quranfi failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ quranfi stopped with error: %v", err)
	}
}
