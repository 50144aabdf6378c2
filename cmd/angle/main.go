package main

import "github.com/angle-app/angle/internal/cli"

func main() {
	cli.Main()
}
