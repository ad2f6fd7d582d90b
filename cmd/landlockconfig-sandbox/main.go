// Command landlockconfig-sandbox builds a Landlock ruleset from a
// JSON or TOML policy document, enters the sandbox on every OS thread,
// and execs the given command. It is demonstration tooling in the
// same role go-landlock's cmd/landlock-restrict plays for that
// library: not a packaged product, just a worked example of driving
// the core library end to end.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/landlock-lsm/landlockconfig/config"
	"github.com/landlock-lsm/landlockconfig/ruleset"
	ll "github.com/landlock-lsm/landlockconfig/ruleset/syscall"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  landlockconfig-sandbox -json FILE | -toml FILE | -dir DIR [-v] -- COMMAND...")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -json FILE   parse a strict JSON policy document")
	fmt.Println("  -toml FILE   parse a single TOML policy document")
	fmt.Println("  -dir DIR     parse and compose every *.toml file in DIR")
	fmt.Println("  -v           print the parsed policy's effective handled access before building")
	fmt.Println()
}

func parseFlags(args []string) (jsonFile, tomlFile, dir string, verbose bool, cmd []string) {
ArgParsing:
	for len(args) > 0 {
		switch args[0] {
		case "-json":
			jsonFile, args = args[1], args[2:]
			continue
		case "-toml":
			tomlFile, args = args[1], args[2:]
			continue
		case "-dir":
			dir, args = args[1], args[2:]
			continue
		case "-v":
			verbose = true
			args = args[1:]
			continue
		case "--":
			args = args[1:]
			break ArgParsing
		default:
			log.Fatalf("unrecognized option %q", args[0])
		}
	}
	cmd = args
	return
}

func main() {
	jsonFile, tomlFile, dir, verbose, cmdArgs := parseFlags(os.Args[1:])

	selected := 0
	for _, v := range []string{jsonFile, tomlFile, dir} {
		if v != "" {
			selected++
		}
	}
	if selected != 1 || len(cmdArgs) < 1 {
		usage()
		log.Fatalf("need exactly one of -json/-toml/-dir and a command after --, got %v", os.Args[1:])
	}
	if !strings.HasPrefix(cmdArgs[0], "/") {
		log.Fatalf("need absolute binary path, got %q", cmdArgs[0])
	}

	var policy *config.Policy
	var err error
	switch {
	case jsonFile != "":
		b, readErr := os.ReadFile(jsonFile)
		if readErr != nil {
			log.Fatalf("reading %s: %v", jsonFile, readErr)
		}
		policy, err = config.ParseJSONBytes(b)
	case tomlFile != "":
		policy, err = config.ParseTOMLPath(tomlFile)
	default:
		policy, err = config.ParseTOMLDirectory(dir)
	}
	if err != nil {
		log.Fatalf("parsing policy: %v", err)
	}

	if verbose {
		h := policy.EffectiveHandled()
		fmt.Printf("Parsed policy: abi=%d handledAccessFs=%#x handledAccessNet=%#x scoped=%#x\n",
			policy.ABI, h.FS, h.Net, h.Scope)
		fmt.Printf("  pathBeneath rules: %d, netPort rules: %d\n", len(policy.PathBeneath), len(policy.NetPort))
	}

	fd, err := ruleset.Build(policy, 0)
	if err != nil {
		log.Fatalf("building ruleset: %v", err)
	}

	if err := ll.AllThreadsPrctl(prSetNoNewPrivs, 1, 0, 0, 0); err != nil {
		log.Fatalf("prctl(PR_SET_NO_NEW_PRIVS): %v", err)
	}
	if err := ll.AllThreadsLandlockRestrictSelf(fd, 0); err != nil {
		log.Fatalf("landlock_restrict_self: %v", err)
	}

	if err := syscall.Exec(cmdArgs[0], cmdArgs, os.Environ()); err != nil {
		log.Fatalf("execve: %v", err)
	}
}

const prSetNoNewPrivs = 38
