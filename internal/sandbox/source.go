package sandbox

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// allowedPackages is the stdlib surface a snippet may import
var allowedPackages = map[string]string{
	"fmt":     "fmt.Sprint",
	"math":    "math.Abs",
	"sort":    "sort.Strings",
	"strconv": "strconv.Itoa",
	"strings": "strings.TrimSpace",
	"time":    "time.Now",
}

const (
	framePath  = "sheetlens/domain/frame"
	envPath    = "sheetlens/sandbox/env"
	entryPoint = "snippetMain"
)

var (
	packageLine  = regexp.MustCompile(`^\s*package\s+\w+\s*$`)
	singleImport = regexp.MustCompile(`^\s*import\s+(?:(\w+|\.)\s+)?"([^"]+)"\s*$`)
	blockImport  = regexp.MustCompile(`^\s*(?:(\w+|\.)\s+)?"([^"]+)"\s*$`)
	mainFunc     = regexp.MustCompile(`(?m)^func\s+main\s*\(\s*\)`)
)

type importSpec struct {
	alias string
	path  string
}

// AllowedImports lists the packages snippets may import
func AllowedImports() []string {
	pkgs := make([]string, 0, len(allowedPackages))
	for pkg := range allowedPackages {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs
}

// splitImports removes package and import declarations from code
func splitImports(code string) (string, []importSpec) {
	var (
		rest    []string
		imports []importSpec
		inBlock bool
	)
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case inBlock:
			if strings.HasPrefix(trimmed, ")") {
				inBlock = false
			} else if m := blockImport.FindStringSubmatch(trimmed); m != nil {
				imports = append(imports, importSpec{alias: m[1], path: m[2]})
			}
		case packageLine.MatchString(line):
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case singleImport.MatchString(line):
			m := singleImport.FindStringSubmatch(line)
			imports = append(imports, importSpec{alias: m[1], path: m[2]})
		default:
			rest = append(rest, line)
		}
	}
	return strings.Join(rest, "\n"), imports
}

// checkImports rejects anything outside the whitelist and the table package
func checkImports(imports []importSpec) error {
	var forbidden []string
	for _, imp := range imports {
		if _, ok := allowedPackages[imp.path]; ok || imp.path == framePath {
			continue
		}
		forbidden = append(forbidden, imp.path)
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports %v (allowed: %s)", forbidden, strings.Join(AllowedImports(), ", "))
	}
	return nil
}

// hoist separates top-level func and type declarations from loose statements
func hoist(code string) (decls, body string) {
	lines := strings.Split(code, "\n")
	var d, b []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "func ") && !strings.HasPrefix(line, "type ") {
			b = append(b, line)
			continue
		}
		d = append(d, line)
		if !strings.HasSuffix(strings.TrimSpace(line), "{") {
			continue
		}
		for i+1 < len(lines) {
			i++
			d = append(d, lines[i])
			if strings.HasPrefix(lines[i], "}") {
				break
			}
		}
	}
	return strings.Join(d, "\n"), strings.Join(b, "\n")
}

// assemble turns a snippet into a main package exposing entryPoint. Snippets
// with func main are programs; anything else is a function body.
func assemble(code string) (string, error) {
	rest, imports := splitImports(code)
	if err := checkImports(imports); err != nil {
		return "", err
	}

	var src strings.Builder
	src.WriteString("package main\n\nimport (\n")
	for _, pkg := range AllowedImports() {
		fmt.Fprintf(&src, "\t%q\n", pkg)
	}
	fmt.Fprintf(&src, "\t%q\n\t%q\n", framePath, envPath)
	for _, imp := range imports {
		if imp.alias != "" && imp.alias != "_" {
			fmt.Fprintf(&src, "\t%s %q\n", imp.alias, imp.path)
		}
	}
	src.WriteString(")\n\nvar df = env.Table()\n\nvar (\n")
	for _, pkg := range AllowedImports() {
		fmt.Fprintf(&src, "\t_ = %s\n", allowedPackages[pkg])
	}
	src.WriteString("\t_ frame.Row\n)\n\n")

	if mainFunc.MatchString(rest) {
		src.WriteString(mainFunc.ReplaceAllString(rest, "func "+entryPoint+"()"))
		src.WriteString("\n")
		return src.String(), nil
	}

	decls, body := hoist(rest)
	if strings.TrimSpace(decls) != "" {
		src.WriteString(decls)
		src.WriteString("\n\n")
	}
	fmt.Fprintf(&src, "func %s() {\n%s\n}\n", entryPoint, body)
	return src.String(), nil
}
