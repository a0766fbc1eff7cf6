package cmd

import "strings"

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// choices drops blank entries and keeps order and duplicates; duplicates
// are collapsed later when the answer schema is built.
func (s stringSliceFlag) choices() []string {
	out := make([]string, 0, len(s))
	for _, c := range s {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
