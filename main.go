package main

import "collage-sync/cmd"

func main() {
	cmd.Run()
}
