package main

import "power-price-level/internal/cli"

func main() {
	cli.Execute()
}
