package report

import (
	"errors"
	"fmt"
	"strings"

	"finch-command-runner/internal/executor"
	"finch-command-runner/internal/model"
	"finch-command-runner/internal/parser"
)

func Welcome() string {
	return strings.Join([]string{
		"Welcome to the Command Array Application",
		"",
		"The application will read a series of commands for the",
		"Finch robot from a data file and then execute each of them.",
	}, "\n")
}

func Closing() string {
	return "Thank you for using the Command Array Application"
}

// Accepted lists a parsed sequence, one command per line.
func Accepted(seq model.Sequence) string {
	if len(seq) == 0 {
		return "No commands read."
	}
	lines := make([]string, 0, len(seq)+1)
	lines = append(lines, fmt.Sprintf("Read %d command(s):", len(seq)))
	for _, name := range seq.Names() {
		lines = append(lines, "  Finch Command: "+name)
	}
	return strings.Join(lines, "\n")
}

func Executing(in model.Instruction) string {
	return "Command Currently Executing: " + in.String()
}

func SequenceComplete() string {
	return "The command sequence is now complete."
}

func Reading(r executor.Reading) string {
	return fmt.Sprintf("%s: %.2f", r.Sensor, r.Value)
}

// ParseFailure describes why the command file was rejected.
func ParseFailure(err error) string {
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		return "Unable to read the command file: " + err.Error()
	}
	switch pe.Kind {
	case parser.SourceUnavailable:
		return fmt.Sprintf("Unable to locate the command file %q in the current folder.", pe.Text)
	case parser.UnrecognizedCommand:
		return fmt.Sprintf("Invalid command %q encountered on line %d of the command file.", pe.Text, pe.Line)
	default:
		return fmt.Sprintf("Reading the command file failed near line %d: %v", pe.Line, pe.Err)
	}
}

// Final renders the run summary.
func Final(runID string, parsed int, out executor.Outcome, err error) string {
	status := "✅ complete"
	switch out.State {
	case executor.Halted:
		status = "✅ halted by DONE"
	case executor.Faulted:
		status = "❌ device fault"
		var ee *executor.ExecutionError
		if errors.As(err, &ee) && ee.Kind == executor.InvalidInstruction {
			status = "❌ invalid command"
		}
	}
	if (out.State == "" || out.State == executor.Running) && err != nil {
		status = "❌ not started"
	}
	parts := []string{status,
		fmt.Sprintf("run_id=%s", runID),
		fmt.Sprintf("commands parsed=%d executed=%d", parsed, out.Executed),
	}
	if len(out.Readings) > 0 {
		readings := make([]string, 0, len(out.Readings))
		for _, r := range out.Readings {
			readings = append(readings, "  "+Reading(r))
		}
		parts = append(parts, "\n[Readings]\n"+strings.Join(readings, "\n"))
	}
	if err != nil {
		parts = append(parts, "\nError: "+err.Error())
	}
	return strings.Join(parts, "\n")
}
