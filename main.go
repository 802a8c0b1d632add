package main

import "timestick/internal/cli"

func main() {
	cli.Execute()
}
