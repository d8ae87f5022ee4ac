package main

import "nexus/cmd"

func main() {
	cmd.Run()
}
