// Command safeupdate runs guarded updates against a local document store and
// serves them over HTTP and MCP.
package main

import "github.com/ppiankov/safeupdate/internal/cli"

func main() {
	cli.Execute()
}
