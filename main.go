package main

import "dbkeep/internal/cli"

func main() {
	cli.Main()
}
