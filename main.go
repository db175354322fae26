package main

import "github.com/kozaktomas/faceauth/cmd"

func main() {
	cmd.Execute()
}
