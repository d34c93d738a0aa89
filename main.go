package main

import "github.com/zjrosen/povtrack/cmd"

func main() {
	cmd.Execute()
}
