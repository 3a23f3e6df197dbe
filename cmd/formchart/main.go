// Command formchart validates, renders, scripts and serves questionnaire
// definitions.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
