package main

import "libraryclient/internal/app"

var version = "dev"

func main() {
	app.SetVersion(version)
	app.Execute()
}
