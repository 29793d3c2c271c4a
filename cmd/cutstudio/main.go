package main

import (
	"log"
	"os"

	"github.com/ivlev/cutstudio/internal/system"
)

// Version задается при сборке через -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	system.InitResourceLimits()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("[-] Error: %v", err)
	}
}
