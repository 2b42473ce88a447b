package main

import "audio-feature-extractor/cmd"

func main() {
	cmd.Execute()
}
