package main

import "bridgelink/cmd/bridgecli/command"

func main() {
	command.Execute()
}
