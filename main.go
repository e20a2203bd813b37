package main

import "github.com/nextlevelbuilder/slacktail/cmd"

func main() {
	cmd.Execute()
}
