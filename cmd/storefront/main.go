package main

import (
	"os"

	"horse.fit/storefront/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
