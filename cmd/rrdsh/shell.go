package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"

	"github.com/xtxerr/roundrobin/internal/errors"
	"github.com/xtxerr/roundrobin/internal/logging"
	"github.com/xtxerr/roundrobin/internal/storage/series"
	"github.com/xtxerr/roundrobin/internal/storage/types"
	"github.com/xtxerr/roundrobin/internal/validation"
)

// ingestBatchSize bounds the samples buffered before a PushBatch.
const ingestBatchSize = 1024

type shell struct {
	reg     *series.Registry
	current string
	out     io.Writer
}

type command struct {
	name  string
	usage string
	help  string
	run   func(args []string) error
}

func newShell(reg *series.Registry, current string, out io.Writer) *shell {
	return &shell{reg: reg, current: current, out: out}
}

func (sh *shell) commands() []command {
	return []command{
		{"push", "push [series] <value>...", "append values to a series", sh.cmdPush},
		{"use", "use <series>", "switch the current series", sh.cmdUse},
		{"sample", "sample <ago>", "value on the uniform time axis, 0 is newest", sh.cmdSample},
		{"point", "point <index>", "stored value, 0 is the newest finest value", sh.cmdPoint},
		{"samples", "samples", "whole time axis of the current series", sh.cmdSamples},
		{"points", "points", "every stored value of the current series", sh.cmdPoints},
		{"levels", "levels", "level layout of the current series", sh.cmdLevels},
		{"dump", "dump", "raw level contents, coarsest first", sh.cmdDump},
		{"series", "series", "list series", sh.cmdSeries},
		{"remove", "remove <series>", "drop a series", sh.cmdRemove},
		{"stats", "stats", "registry counters", sh.cmdStats},
		{"requirements", "requirements [series]", "memory and retention of a series layout", sh.cmdRequirements},
		{"help", "help", "show this help", sh.cmdHelp},
		{"exit", "exit", "leave the shell", func([]string) error { return nil }},
	}
}

// execute runs one shell line.
func (sh *shell) execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	for _, c := range sh.commands() {
		if c.name == fields[0] {
			return c.run(fields[1:])
		}
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

// describe renders err for the shell with a hint for its category.
func describe(err error) string {
	switch {
	case errors.IsNotFound(err):
		return fmt.Sprintf("error: %v (push a value first, or see series)", err)
	case errors.IsOutOfRange(err):
		return fmt.Sprintf("error: %v (see levels)", err)
	case errors.IsLimit(err):
		return fmt.Sprintf("error: %v (remove a series first)", err)
	case errors.IsValidation(err):
		return fmt.Sprintf("error: %v (see help)", err)
	}
	return fmt.Sprintf("error: %v", err)
}

// interactive runs the go-prompt shell until exit or EOF.
func (sh *shell) interactive() {
	p := prompt.New(
		func(line string) {
			if err := sh.execute(line); err != nil {
				fmt.Fprintln(sh.out, describe(err))
			}
		},
		sh.complete,
		prompt.OptionTitle("rrdsh"),
		prompt.OptionPrefix("rrdsh> "),
		prompt.OptionLivePrefix(func() (string, bool) {
			return fmt.Sprintf("rrdsh %s> ", sh.current), true
		}),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && strings.TrimSpace(in) == "exit"
		}),
	)
	p.Run()
}

func (sh *shell) complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	word := d.GetWordBeforeCursor()

	fields := strings.Fields(before)
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(before, " ")) {
		var s []prompt.Suggest
		for _, c := range sh.commands() {
			s = append(s, prompt.Suggest{Text: c.name, Description: c.help})
		}
		return prompt.FilterHasPrefix(s, word, true)
	}

	switch fields[0] {
	case "use", "remove", "push", "requirements":
		var s []prompt.Suggest
		for _, name := range sh.reg.Names() {
			s = append(s, prompt.Suggest{Text: name})
		}
		return prompt.FilterHasPrefix(s, word, false)
	}
	return nil
}

// ingest reads "value" or "series value" lines from r and pushes them in
// batches. Lines that do not parse are pushed as invalid samples and
// counted as skipped.
func (sh *shell) ingest(ctx context.Context, r io.Reader) error {
	log := logging.Component("ingest")
	batch := types.NewSampleBatch(ingestBatchSize)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		err := sh.reg.PushBatch(ctx, batch)
		batch.Clear()
		return err
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sample, err := sh.parseLine(line)
		if err != nil {
			log.Warn("skipping line", "line", lineNo, "error", err)
		}
		batch.Add(sample)

		if batch.Len() >= ingestBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}
	if err := flush(); err != nil {
		return err
	}

	stats := sh.reg.Stats()
	log.Info("input consumed", "lines", lineNo, "series", stats.Series, "pushes", stats.Pushes, "skipped", stats.Skipped)
	return nil
}

// parseLine parses "value" or "series value". On error the returned sample
// is marked invalid.
func (sh *shell) parseLine(line string) (types.Sample, error) {
	sample := types.Sample{Series: sh.current, TimestampMs: time.Now().UnixMilli()}

	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
	case 2:
		sample.Series = fields[0]
		fields = fields[1:]
	default:
		return sample, fmt.Errorf("expected 'value' or 'series value', got %d fields", len(fields))
	}

	if err := validation.ValidateSeriesName(sample.Series); err != nil {
		return sample, err
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return sample, err
	}
	sample.Value = v
	sample.Valid = true
	return sample, nil
}

// printAll prints the sample axis of every series.
func (sh *shell) printAll() error {
	for _, name := range sh.reg.Names() {
		samples, err := sh.reg.Samples(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%s: %s\n", name, formatValues(samples))
	}
	return nil
}

// =============================================================================
// Commands
// =============================================================================

func (sh *shell) cmdPush(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: push [series] <value>...")
	}

	// A leading finite number is a value. Series with numeric names are
	// reached through use.
	name := sh.current
	if _, err := parseValue(args[0]); err != nil {
		name, args = args[0], args[1:]
		if len(args) == 0 {
			return fmt.Errorf("usage: push [series] <value>...")
		}
	}

	values := make([]float64, len(args))
	for i, arg := range args {
		v, err := parseValue(arg)
		if err != nil {
			return err
		}
		values[i] = v
	}

	for _, v := range values {
		if err := sh.reg.Push(name, v); err != nil {
			return err
		}
	}
	fmt.Fprintf(sh.out, "pushed %d value(s) to %s\n", len(values), name)
	return nil
}

func (sh *shell) cmdUse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <series>")
	}
	if err := validation.ValidateSeriesName(args[0]); err != nil {
		return err
	}
	sh.current = args[0]
	return nil
}

func (sh *shell) cmdSample(args []string) error {
	ago, err := intArg(args, "sample <ago>")
	if err != nil {
		return err
	}
	v, err := sh.reg.Sample(sh.current, ago)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, formatValue(v))
	return nil
}

func (sh *shell) cmdPoint(args []string) error {
	index, err := intArg(args, "point <index>")
	if err != nil {
		return err
	}
	v, err := sh.reg.DataPoint(sh.current, index)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, formatValue(v))
	return nil
}

func (sh *shell) cmdSamples([]string) error {
	samples, err := sh.reg.Samples(sh.current)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, formatValues(samples))
	return nil
}

func (sh *shell) cmdPoints([]string) error {
	points, err := sh.reg.DataPoints(sh.current)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, formatValues(points))
	return nil
}

func (sh *shell) cmdLevels([]string) error {
	levels, err := sh.reg.Levels(sh.current)
	if err != nil {
		return err
	}
	for _, l := range levels {
		fmt.Fprintf(sh.out, "depth %d: %d data points, %d push(es) each, %d pushes covered\n",
			l.Depth, l.DataPoints, l.DataPointsPerSample, l.RawPoints)
	}
	return nil
}

func (sh *shell) cmdDump([]string) error {
	dump, err := sh.reg.Dump(sh.current)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, dump)
	return nil
}

// cmdSeries lists series grouped by source. Series without a source come
// first, unindented.
func (sh *shell) cmdSeries([]string) error {
	groups := make(map[string][]*validation.SeriesRef)
	var sources []string
	for _, name := range sh.reg.Names() {
		ref, err := validation.ParseSeriesRef(name)
		if err != nil {
			ref = &validation.SeriesRef{Metric: name}
		}
		if _, ok := groups[ref.Source]; !ok {
			sources = append(sources, ref.Source)
		}
		groups[ref.Source] = append(groups[ref.Source], ref)
	}
	sort.Strings(sources)

	for _, source := range sources {
		indent := ""
		if source != "" {
			fmt.Fprintf(sh.out, "%s:\n", source)
			indent = "  "
		}
		for _, ref := range groups[source] {
			marker := " "
			if ref.String() == sh.current {
				marker = "*"
			}
			fmt.Fprintf(sh.out, "%s%s %s\n", indent, marker, ref.Metric)
		}
	}
	return nil
}

func (sh *shell) cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <series>")
	}
	return sh.reg.Remove(args[0])
}

func (sh *shell) cmdStats([]string) error {
	s := sh.reg.Stats()
	fmt.Fprintf(sh.out, "series=%d pushes=%d skipped=%d created=%d removed=%d\n",
		s.Series, s.Pushes, s.Skipped, s.Created, s.Removed)
	return nil
}

func (sh *shell) cmdRequirements(args []string) error {
	name := sh.current
	if len(args) > 0 {
		name = args[0]
	}
	req := sh.reg.Config().CalculateRequirements(name)
	fmt.Fprint(sh.out, req.FormatRequirements())
	return nil
}

func (sh *shell) cmdHelp([]string) error {
	for _, c := range sh.commands() {
		fmt.Fprintf(sh.out, "  %-24s %s\n", c.usage, c.help)
	}
	return nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("usage: %s: %w", usage, err)
	}
	return n, nil
}

// parseValue parses a finite float. NaN and infinities are rejected so
// names like "nan" or "inf" stay series names.
func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q: not a finite number", s)
	}
	return v, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, " ")
}
