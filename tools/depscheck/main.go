// Command depscheck fails when the projectile core reaches for transport or
// wire-format packages. Run it from the module root.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

type rule struct {
	// Patterns select the packages the rule applies to.
	Patterns []string
	// Forbidden import path prefixes. An entry ending in "$" matches exactly.
	Forbidden []string
}

var rules = []rule{
	{
		Patterns: []string{
			"./internal/ballistics/...",
			"./internal/collision/...",
			"./internal/projectile/...",
			"./internal/spawn/...",
		},
		Forbidden: []string{
			"bulletsim/server$",
			"bulletsim/server/internal/net",
			"bulletsim/server/internal/replica",
			"bulletsim/server/internal/sim",
			"github.com/gorilla/websocket",
			"github.com/vmihailenco/msgpack",
		},
	},
	{
		Patterns:  []string{"./internal/sim/...", "./internal/world/..."},
		Forbidden: []string{"bulletsim/server$", "bulletsim/server/internal/net", "github.com/gorilla/websocket"},
	},
}

func main() {
	var found []string
	for _, r := range rules {
		pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName | packages.NeedImports}, r.Patterns...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "depscheck: failed to load packages: %v\n", err)
			os.Exit(1)
		}
		if packages.PrintErrors(pkgs) > 0 {
			os.Exit(1)
		}
		found = append(found, violations(pkgs, r.Forbidden)...)
	}

	if len(found) > 0 {
		sort.Strings(found)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range found {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func violations(pkgs []*packages.Package, forbidden []string) []string {
	var out []string
	for _, pkg := range pkgs {
		for imp := range pkg.Imports {
			if matches(imp, forbidden) {
				out = append(out, fmt.Sprintf("%s -> %s", pkg.PkgPath, imp))
			}
		}
	}
	sort.Strings(out)
	return out
}

func matches(imp string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if exact, ok := strings.CutSuffix(prefix, "$"); ok {
			if imp == exact {
				return true
			}
			continue
		}
		if imp == prefix || strings.HasPrefix(imp, prefix+"/") {
			return true
		}
	}
	return false
}
