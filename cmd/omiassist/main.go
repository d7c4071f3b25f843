package main

import "github.com/jmcleod/omiassist/cmd/omiassist/cmd"

func main() {
	cmd.Execute()
}
