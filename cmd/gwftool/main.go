// Command gwftool runs Galaxy-format workflows against a local Docker or
// remote TES executor.
package main

import "github.com/kellrott/gwftool/internal/cli"

func main() {
	cli.Execute()
}
