/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/brokerdb/cmd/brokerdb/cmd"

func main() {
	cmd.Execute()
}
