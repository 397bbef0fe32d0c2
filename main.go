package main

import "github.com/issueradar/crawler/cmd"

func main() {
	cmd.Execute()
}
