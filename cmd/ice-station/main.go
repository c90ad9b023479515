package main

import "github.com/oshokin/ice-station/cmd/ice-station/cmd"

func main() {
	cmd.Execute()
}
