package main

import "DocQA/client/docqa-cli/cmd"

func main() {
	cmd.Execute()
}
