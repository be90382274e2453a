package main

import (
	"fmt"
	"os"

	"github.com/funvibe/varobj/pkg/varobjcli"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <scenario.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	os.Exit(varobjcli.Run(os.Args[1], os.Stdout))
}
