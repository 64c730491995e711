package main

import "github.com/rovshanmuradov/launchpad-curve/internal/cli"

func main() {
	cli.Execute()
}
