/*
Package cli provides helpers shared by the cacheproxy commands.

Errors:

UsageError marks a bad invocation; ExitCode maps it to exit status 2 and
any other error to 1. ConfigError and CommandError carry the failing field or
command name.

Output Formatting:

Commands that print rows support text (aligned columns) and JSON output:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.Write(os.Stdout, table)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background(), logger)
	defer stop()
*/
package cli
