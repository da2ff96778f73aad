package main

import (
	"stepgen/internal/bootstrap"
)

func main() {
	app := bootstrap.NewApp()
	app.Run()
}
