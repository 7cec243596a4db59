package main

import "github.com/DrSkyle/idlewatch/cmd/idlewatch/commands"

func main() {
	commands.Execute()
}
