package main

import "schoolbus/internal/cli"

func main() {
	cli.Execute()
}
