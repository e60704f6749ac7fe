package main

import "termhost/internal/cli"

func main() {
	cli.Execute()
}
