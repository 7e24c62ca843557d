// Package main provides the CLI for controlling presenced.
package main

func main() {
	Execute()
}
