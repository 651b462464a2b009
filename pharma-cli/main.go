package main

import "pharma-cli/cmd"

func main() {
	cmd.Execute()
}
