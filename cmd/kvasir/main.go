package main

import (
	"os"

	"github.com/Happy-Ferret/kvasir/driver"
)

func main() {
	os.Exit(driver.Execute())
}
