package main

import "github.com/agentic-research/dashlens/cmd"

func main() {
	cmd.Execute()
}
