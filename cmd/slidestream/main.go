package main

import "github.com/slidestream/slidestream/cmd/slidestream/commands"

func main() {
	commands.Execute()
}
