package main

import (
	"log"

	"github.com/tech-arch1tect/edusms/app"
	_ "go.uber.org/automaxprocs"
)

func main() {
	a, err := app.NewApp().WithAutoConfig().Build()
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}
