package main

import "github.com/frahmantamala/audit-workflow/cmd"

func main() {
	cmd.Execute()
}
