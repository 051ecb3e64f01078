package main

import "github.com/suteetoe/storefront/cmd/storefront/commands"

func main() {
	commands.Execute()
}
