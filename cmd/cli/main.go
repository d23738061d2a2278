package main

import "github.com/mchmarny/poetry/pkg/cli"

func main() {
	cli.Execute()
}
