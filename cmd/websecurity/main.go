package main

import "github.com/upb/websecurity/cmd/websecurity/cmd"

func main() {
	cmd.Execute()
}
