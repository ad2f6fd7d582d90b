// Command landlock-abi-version prints the Landlock ABI version
// supported by the running kernel, or 0 if Landlock is unavailable.
package main

import (
	"fmt"

	ll "github.com/landlock-lsm/landlockconfig/ruleset/syscall"
)

func main() {
	v, err := ll.LandlockGetABIVersion()
	if err != nil {
		fmt.Println("0")
	} else {
		fmt.Println(v)
	}
}
