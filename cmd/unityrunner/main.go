package main

import "unityrunner/internal/cli"

func main() {
	cli.Execute()
}
