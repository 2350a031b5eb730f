package proccaller

import "regexp"

// namedVarPattern matches a $name$ placeholder inside a raw stdout/stderr
// regex pattern: $name$ becomes a named capture group (?P<name>\S+).
var namedVarPattern = regexp.MustCompile(`\$(\S+)\$`)

// CompileNamed rewrites every $name$ placeholder in pattern into a named
// capture group matching one run of non-whitespace, then compiles it.
func CompileNamed(pattern string) (*regexp.Regexp, error) {
	rewritten := namedVarPattern.ReplaceAllString(pattern, `(?P<$1>\S+)`)
	return regexp.Compile(rewritten)
}

// CompileAllNamed compiles every pattern in patterns via CompileNamed,
// stopping at the first failure.
func CompileAllNamed(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := CompileNamed(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// matchNamedGroups searches text once against re and merges any named
// capture groups it finds into dest. A pattern with no match contributes
// nothing.
func matchNamedGroups(re *regexp.Regexp, text string, dest map[string]string) {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return
	}
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		dest[name] = match[i]
	}
}
