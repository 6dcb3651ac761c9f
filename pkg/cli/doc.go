/*
Package cli provides helpers shared by the prism commands.

Output Formatting:

Command results can be written as text, JSON or YAML:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, summary); err != nil {
		return err
	}

Text output uses the value's String method when it has one.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
