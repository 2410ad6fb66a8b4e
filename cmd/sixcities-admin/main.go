package main

import (
	"github.com/turtacn/sixcities/cmd/cli"
)

// main is the entry point for the sixcities-admin command-line tool.
// main 是 sixcities-admin 命令行工具的入口点。
func main() {
	cli.Execute()
}
