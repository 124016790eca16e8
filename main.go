package main

import "danmaku/cmd"

func main() {
	cmd.Execute()
}
