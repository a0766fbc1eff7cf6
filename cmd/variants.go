package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/AlhasanIQ/mcp-clarify/negotiate"
)

// runVariants prints the call shapes a question would be tried with, in
// order, and the prompt text the human would see.
func runVariants(args []string, io IO) error {
	fs := flag.NewFlagSet("variants", flag.ContinueOnError)
	fs.SetOutput(io.ErrOut)

	var choicesRaw stringSliceFlag
	var asJSON bool
	fs.Var(&choicesRaw, "choice", "Suggested answer. Repeatable.")
	fs.BoolVar(&asJSON, "json", false, "Print the variant list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	choices := choicesRaw.choices()
	plan := negotiate.Plan(len(choices) > 0)

	if asJSON {
		names := make([]string, 0, len(plan))
		for _, step := range plan {
			names = append(names, step.String())
		}
		return json.NewEncoder(io.Out).Encode(names)
	}

	s := newSty(io.Out)
	s.header("Elicitation variants")
	for i, step := range plan {
		s.step(i+1, step.String())
	}

	if unique := negotiate.Dedupe(choices); len(unique) > 0 {
		s.section("Choices")
		for i, c := range unique {
			s.choice(i+1, c, "")
		}
	}

	if prompt := strings.TrimSpace(strings.Join(fs.Args(), " ")); prompt != "" {
		s.section("Prompt")
		for _, line := range strings.Split(negotiate.DisplayPrompt(prompt, choices), "\n") {
			s.info(line)
		}
	}
	fmt.Fprintln(io.Out)
	return nil
}
