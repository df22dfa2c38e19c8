package main

import "github.com/ConserveLee/mapwalk/internal/cli"

func main() {
	cli.Execute()
}
