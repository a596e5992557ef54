// praxis keeps a task database aligned with a markdown knowledge base
// and streams change notifications to connected clients.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
