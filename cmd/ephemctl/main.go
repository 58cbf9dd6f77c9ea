// Command ephemctl loads ephemeris kernels into a registry and reports what
// they cover, or keeps a directory of kernels loaded while it changes.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
