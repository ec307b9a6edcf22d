// Package cli implements the mailattic command line interface: archive
// ingestion plus the query and report front-ends over the message
// store.
package cli

import "fmt"

// Run dispatches a command line to its subcommand handler.
func Run(args []string) error {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return nil
	}

	switch args[0] {
	case "ingest":
		return runIngest(args[1:])
	case "search":
		return runSearch(args[1:])
	case "semantic":
		return runSemantic(args[1:])
	case "timeline":
		return runTimeline(args[1:])
	case "dossier":
		return runDossier(args[1:])
	case "export":
		return runExport(args[1:])
	case "credentials":
		return runCredentials(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func isHelp(arg string) bool {
	switch arg {
	case "help", "-h", "--help":
		return true
	}
	return false
}

func printUsage() {
	fmt.Print(`mailattic - legacy mail archive ingestion and search

Usage:
  mailattic <command> [options]

Commands:
  ingest    Ingest a PST, zip/OLM archive, or export directory
  search    Keyword search over stored messages
  semantic  Embedding search over stored messages
  timeline  Render an account's chronological HTML timeline
  dossier   Render an account's recent-message HTML dossier
  export    Dump store tables to CSV files

  credentials  Store or clear semantic API keys in the system keyring

Run "mailattic <command> -h" for command options.
`)
}
