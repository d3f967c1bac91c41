package main

import (
	"github.com/louskac/VHP/infrastructure"
	"github.com/louskac/VHP/infrastructure/env"
)

func init() {
	env.LoadEnv()
}

func main() {
	infrastructure.StartServer()
}
