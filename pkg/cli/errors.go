package cli

import "fmt"

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// FailureError reports that a command ran but found problems, such as
// compile errors or failing fixtures. The details have already been
// printed, so only the count is carried.
type FailureError struct {
	What  string
	Count int
}

func (e *FailureError) Error() string {
	if e.Count == 1 {
		return fmt.Sprintf("1 %s", e.What)
	}
	return fmt.Sprintf("%d %ss", e.Count, e.What)
}
