package main

import "tron-wallet-core/cmd/tron-wallet-cli/cmd"

func main() {
	cmd.Execute()
}
