/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/digital-blueprint/apiserver/cmd"

func main() {
	cmd.Execute()
}
