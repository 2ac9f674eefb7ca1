package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xmhha/podpost/pkg/config"
	"gopkg.in/yaml.v3"
)

const maskedPassword = "********"

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
	out        io.Writer
	in         io.Reader
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "show":
		return c.runShow(subargs)
	case "path":
		return c.runPath()
	case "init":
		return c.runInit(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", subcommand)
	}
}

// runShow displays the current configuration with the password masked.
func (c *configCommand) runShow(args []string) error {
	fs := newFlagSet("config show")
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Account.Password != "" {
		shown.Account.Password = maskedPassword
	}

	switch *format {
	case "json":
		return c.showJSON(&shown)
	default:
		return c.showYAML(&shown)
	}
}

// showYAML displays configuration in YAML format.
func (c *configCommand) showYAML(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(c.out, "# Current Configuration")
	fmt.Fprintln(c.out, "# Source:", c.getConfigSource())
	fmt.Fprintln(c.out)
	fmt.Fprint(c.out, string(data))
	return nil
}

// showJSON displays configuration in JSON format. The password is never
// part of the JSON form.
func (c *configCommand) showJSON(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(c.out, string(data))
	return nil
}

// runPath shows the configuration file search paths.
func (c *configCommand) runPath() error {
	paths := config.SearchPaths()
	if c.configPath != "" {
		paths = []string{c.configPath}
	}

	fmt.Fprintln(c.out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(c.out)

	for i, p := range paths {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(c.out, "  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Active configuration:", c.getConfigSource())
	return nil
}

// runInit writes a configuration file with defaults and the given pod.
func (c *configCommand) runInit(args []string) error {
	fs := newFlagSet("config init")
	force := fs.Bool("force", false, "overwrite an existing file without asking")
	output := fs.String("output", "", "output path (default: ~/.config/podpost/config.yaml)")
	host := fs.String("host", "", "pod host, e.g. pod.example")
	username := fs.String("username", "", "account username")

	if err := fs.Parse(args); err != nil {
		return err
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = c.configPath
	}
	if outputPath == "" {
		outputPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(outputPath); err == nil && !*force {
		fmt.Fprintf(c.out, "Configuration file already exists at: %s\n", outputPath)
		fmt.Fprint(c.out, "Overwrite? [y/N]: ")

		if !c.confirmed() {
			fmt.Fprintln(c.out, "Init cancelled.")
			return nil
		}
	}

	cfg := config.Default()
	cfg.Pod.Host = strings.TrimSpace(*host)
	cfg.Account.Username = strings.TrimSpace(*username)

	if err := config.Save(cfg, outputPath); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Configuration written to: %s\n", outputPath)
	return nil
}

// confirmed reads a yes/no answer. Anything but y or yes is a no.
func (c *configCommand) confirmed() bool {
	if c.in == nil {
		return false
	}

	var response string
	if _, err := fmt.Fscanln(c.in, &response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// getConfigSource returns the path of the active configuration file.
func (c *configCommand) getConfigSource() string {
	if c.configPath != "" {
		return c.configPath
	}
	if path := config.FindConfigFile(); path != "" {
		return path
	}
	return "defaults (no config file found)"
}

// showHelp displays help for config command.
func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  podpost config <subcommand> [flags]

Subcommands:
  show      Display current configuration (password masked)
  path      Show configuration file paths
  init      Write a configuration file with defaults

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Init Flags:
  -host     Pod host, e.g. pod.example
  -username Account username
  -force    Overwrite without confirmation
  -output   Output path for config file

Examples:
  # Create a configuration for a pod
  podpost config init -host pod.example -username alice

  # Show current configuration in JSON format
  podpost config show -format json
`
	fmt.Fprint(c.out, help)
	return nil
}
