// Package flagx lets each config layer parse only the flags it owns, so the
// client and the gateway can share os.Args without tripping over each other.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args that belong to valueFlags (flags
// followed by a value) or boolFlags (flags that never consume the next token).
//
// Supported formats:
//
//	-c conf.json
//	--config=conf.json
//	-v
func FilterArgs(args []string, valueFlags []string, boolFlags ...string) []string {
	withValue := toSet(valueFlags)
	bare := toSet(boolFlags)

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := withValue[name]; ok {
				filtered = append(filtered, arg)
			} else if _, ok := bare[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := bare[arg]; ok {
			filtered = append(filtered, arg)
			continue
		}

		if _, ok := withValue[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// Positional returns the arguments that are neither flags nor values of the
// given value flags, e.g. the file path in "client -a host report.pdf".
func Positional(args []string, valueFlags []string) []string {
	withValue := toSet(valueFlags)

	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i+1:]...)
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			out = append(out, arg)
			continue
		}
		if strings.Contains(arg, "=") {
			continue
		}
		if _, ok := withValue[arg]; ok && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return out
}

// ConfigFileFlag extracts the config file path provided via -c or -config.
// It returns an empty string when neither is present.
func ConfigFileFlag() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}
