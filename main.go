package main

import "browsebench/cmd"

func main() {
	cmd.Execute()
}
