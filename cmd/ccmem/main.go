// ccmem: project memory for AI coding agents.
//
// ccmem keeps stories, tasks, defects and the landmines hit while working
// on them in a local SQLite database, and serves them to agents over MCP
// and to people through an HTTP dashboard.
//
// Usage:
//
//	ccmem serve              # MCP server on stdio
//	ccmem serve --dashboard  # MCP server plus the dashboard
//	ccmem dashboard          # dashboard only
//	ccmem export --out x.json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
