package main

import "github.com/example/learnbot/cmd"

func main() {
	cmd.Execute()
}
