package main

import "github.com/lingopool/lingopool/cmd"

func main() {
	cmd.Execute()
}
