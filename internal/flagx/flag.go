// Package flagx pre-parses the few flags that must be known before the main
// flag set is built: the JSON config path and the .env file path.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns only the arguments naming one of allowedFlags, together
// with their values. Both "-c conf.json" and "-c=conf.json" forms are kept.
// A following token that starts with '-' is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// JsonConfigFlags extracts the config file path given via -c or -config.
// Other arguments are ignored. Returns "" when neither flag is present.
func JsonConfigFlags(args []string) string {
	return stringFlag(args, "config", "c", "Path to config file")
}

// EnvFileFlags extracts the .env file path given via -e or -env.
func EnvFileFlags(args []string) string {
	return stringFlag(args, "env", "e", "Path to .env file")
}

func stringFlag(args []string, long, short, usage string) string {
	var v string

	filtered := FilterArgs(args, []string{"-" + short, "-" + long})

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.StringVar(&v, long, "", usage)
	fs.StringVar(&v, short, "", usage+" (short)")
	_ = fs.Parse(filtered)

	return v
}
