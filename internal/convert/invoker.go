// Package convert wraps single invocations of the external DNG converter.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Result captures the outcome of one converter invocation. Launch and
// execution failures are folded into the result rather than returned as
// errors so that one bad task never aborts the rest of a batch.
type Result struct {
	Success  bool
	ExitCode int
	Output   string
}

// commandResult is an internal process execution response.
type commandResult struct {
	Output   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec with merged stdout/stderr.
type execRunner struct{}

// Run executes one command, capturing interleaved output and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	result := commandResult{
		Output:   combined.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Invoker runs the external converter for one input/output pair at a time.
type Invoker struct {
	converterPath string
	runner        commandRunner
	stat          func(name string) (os.FileInfo, error)
}

// NewInvoker constructs the production invoker with OS dependencies.
func NewInvoker(converterPath string) *Invoker {
	return &Invoker{
		converterPath: converterPath,
		runner:        &execRunner{},
		stat:          os.Stat,
	}
}

// BuildArgs assembles the converter CLI arguments for one conversion:
// all embedded images are extracted, the raw payload is not embedded.
func BuildArgs(inputPath, outputPath string) []string {
	return []string{
		"convert",
		"--image-index", "all",
		"--embed-raw", "false",
		inputPath,
		outputPath,
	}
}

// Invoke converts one input file to one output file. Success requires a
// zero exit code and the output file actually existing afterward, which
// guards against converters that report success without writing anything.
func (v *Invoker) Invoke(ctx context.Context, inputPath, outputPath string) Result {
	args := BuildArgs(inputPath, outputPath)

	cmdResult, runErr := v.runner.Run(ctx, v.converterPath, args...)
	output := cmdResult.Output
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// The process never started: missing executable, bad path,
			// permission problem. Report it as the captured output.
			output = fmt.Sprintf("cannot run converter %q: %v", v.converterPath, runErr)
		}
		return Result{
			Success:  false,
			ExitCode: cmdResult.ExitCode,
			Output:   output,
		}
	}

	if _, err := v.stat(outputPath); err != nil {
		return Result{
			Success:  false,
			ExitCode: cmdResult.ExitCode,
			Output:   output + fmt.Sprintf("\nconverter exited 0 but output file is missing: %s", outputPath),
		}
	}

	return Result{
		Success:  true,
		ExitCode: cmdResult.ExitCode,
		Output:   output,
	}
}

// NewInvokerForTests constructs an invoker with injectable dependencies.
func NewInvokerForTests(
	converterPath string,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
) *Invoker {
	return &Invoker{
		converterPath: converterPath,
		runner:        runner,
		stat:          stat,
	}
}
