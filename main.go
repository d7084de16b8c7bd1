package main

import "github.com/jjenkins/lawtrack/cmd"

func main() {
	cmd.Execute()
}
