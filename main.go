package main

import "github.com/Zakonildo/Diffusion-Model/cmd"

func main() {
	cmd.Execute()
}
