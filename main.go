package main

import "github.com/selimozcann/qrlens/cmd"

func main() {
	cmd.Execute()
}
