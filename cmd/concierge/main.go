package main

import "github.com/example/concierge/cmd"

func main() {
	cmd.Execute()
}
