package main

import "github.com/supervisorapp/supervisor-client/cmd"

func main() {
	cmd.Execute()
}
