package main

import "tokenchat/cmd/cli/command"

func main() {
	command.Execute()
}
