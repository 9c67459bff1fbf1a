package main

import "github.com/brogergvhs/mxscraper/cmd"

func main() {
	cmd.Execute()
}
