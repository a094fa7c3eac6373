package main

import "github.com/chitpool/chitpool/cmd/chitpool/commands"

func main() {
	commands.Execute()
}
