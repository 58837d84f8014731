package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit settings",
	Long: `Settings are stored in ~/.listingsync/config.toml.

Examples:
  listingsync config get
  listingsync config get sync.max_attempts
  listingsync config set sync.max_attempts 5
  listingsync config set oauth.client_secret     # prompts without echo`,
	RunE: runConfigGet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one or all settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting. When the value is omitted it is read from standard
input, without echo on a terminal. Use this for secrets.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if len(args) == 1 {
		value, ok := settingsService.Value(args[0])
		if !ok {
			if !slices.Contains(settingsService.Keys(), args[0]) {
				return fmt.Errorf("unknown key %q", args[0])
			}
			value = "(not set)"
		}
		cmd.Println(value)
		return nil
	}

	for _, key := range settingsService.Keys() {
		value, _ := settingsService.Value(key)
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("%-34s %s\n", key, value)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	key := args[0]

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		cmd.Printf("Value for %s: ", key)
		var err error
		value, err = readSecret(cmd.InOrStdin())
		cmd.Println()
		if err != nil {
			return fmt.Errorf("reading value: %w", err)
		}
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	shown, _ := settingsService.Value(key)
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

// readSecret reads one line without echo when in is a terminal.
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
