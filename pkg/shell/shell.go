/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

var (
	ErrLaunchFailed = errors.New("launch failed")
	ErrNonZeroExit  = errors.New("non-zero exit")
)

type Result struct {
	Stdout bytes.Buffer
	Errout bytes.Buffer
}

// ExitError reports a command that started but did not exit with status 0. A command
// killed by its context reports Code -1.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %v", e.Name, e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return ErrNonZeroExit
}

// Exec exec os command
func Exec(name string, args ...string) (result *Result, err error) {
	return ExecContext(context.Background(), name, "", args...)
}

func ExecInDir(name string, dir string, args ...string) (result *Result, err error) {
	return ExecContext(context.Background(), name, dir, args...)
}

// ExecContext runs name in dir and captures both output streams. Output on stderr is not
// an error by itself.
func ExecContext(ctx context.Context, name string, dir string, args ...string) (result *Result, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	result = &Result{}
	cmd.Stdout = &result.Stdout
	cmd.Stderr = &result.Errout

	if err = cmd.Start(); err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrLaunchFailed, name, err)
	}

	if err = cmd.Wait(); err != nil {
		exitErr := &ExitError{Name: name, Code: -1, Stderr: result.Errout.String(), Err: err}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exitErr.Code = ee.ExitCode()
		}
		return result, exitErr
	}

	return result, nil
}

// Interpreter runs dynamic pages through an external executable, passing the script
// path as the only argument.
type Interpreter struct {
	Command string
	Timeout time.Duration
}

func NewInterpreter(command string, timeout time.Duration) *Interpreter {
	return &Interpreter{Command: command, Timeout: timeout}
}

// Run executes script from its own directory and returns its standard output.
func (i *Interpreter) Run(ctx context.Context, script string) ([]byte, error) {
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	result, err := ExecContext(ctx, i.Command, filepath.Dir(script), script)
	if err != nil {
		return nil, err
	}
	return result.Stdout.Bytes(), nil
}
