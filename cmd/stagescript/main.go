// stagescript hosts user-authored behavior scripts on a simulated actor/card
// stage.
//
// Usage:
//
//	stagescript run                - Load scripts, build the scene, run ticks
//	stagescript inspect            - Print registered behaviors and schemas
//	stagescript version            - Print the version
//
// Global flags:
//
//	--config <path>  - Config file (default: search order, see internal/config)
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
