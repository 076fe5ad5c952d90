package main

import "go_branch_chat/cli"

func main() {
	cli.Execute()
}
