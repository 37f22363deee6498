package main

import "github.com/ogulcanaydogan/FareWatch/internal/cli"

func main() {
	cli.Execute()
}
