package main

import "github.com/reelrank/reelrank/internal/cli"

func main() {
	cli.Execute()
}
