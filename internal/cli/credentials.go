package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mailattic/mailattic/internal/credential"
)

// credentialKey maps a CLI credential name to its keyring key.
func credentialKey(name string) (string, error) {
	switch name {
	case "chroma":
		return credential.ChromaAPIKey, nil
	case "gemini":
		return credential.GeminiAPIKey, nil
	default:
		return "", fmt.Errorf("unknown credential %q (expected chroma or gemini)", name)
	}
}

func runCredentials(args []string) error {
	if len(args) == 0 || isHelp(args[0]) {
		printCredentialsUsage()
		return nil
	}

	switch args[0] {
	case "set":
		return runCredentialsSet(args[1:])
	case "clear":
		return runCredentialsClear(args[1:])
	default:
		return fmt.Errorf("unknown credentials subcommand: %s", args[0])
	}
}

func runCredentialsSet(args []string) error {
	fs := flag.NewFlagSet("credentials set", flag.ContinueOnError)
	value := fs.String("value", "", "credential value (read from stdin when omitted)")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: mailattic credentials set <chroma|gemini> [--value KEY]")
	}

	key, err := credentialKey(fs.Arg(0))
	if err != nil {
		return err
	}

	v := *value
	if v == "" {
		// Reading from stdin keeps the secret out of shell history.
		fmt.Fprintf(os.Stderr, "Enter %s API key: ", fs.Arg(0))
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading credential from stdin: %w", err)
		}
		v = strings.TrimSpace(line)
	}
	if v == "" {
		return errors.New("empty credential value")
	}

	if err := credential.Set(key, v); err != nil {
		return err
	}
	fmt.Printf("Stored %s API key in the system keyring.\n", fs.Arg(0))
	return nil
}

func runCredentialsClear(args []string) error {
	fs := flag.NewFlagSet("credentials clear", flag.ContinueOnError)
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: mailattic credentials clear <chroma|gemini>")
	}

	key, err := credentialKey(fs.Arg(0))
	if err != nil {
		return err
	}

	if err := credential.Delete(key); err != nil {
		return err
	}
	fmt.Printf("Cleared %s API key from the system keyring.\n", fs.Arg(0))
	return nil
}

func printCredentialsUsage() {
	fmt.Print(`Usage:
  mailattic credentials set <chroma|gemini> [--value KEY]
  mailattic credentials clear <chroma|gemini>

Keys are held in the operating system keyring and used when the config
file and environment leave semantic.api_key or semantic.gemini_api_key
empty.
`)
}
