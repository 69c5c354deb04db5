package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file interactively",
	Long: `Create a config.yaml interactively.

You will be prompted for:
  - Server port
  - Database type and connection string
  - Storage directory
  - Initial collection name and visibility`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initOutput string

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "path to write the config file")
	rootCmd.AddCommand(initCmd)
}

// starterConfig mirrors the config file layout for the generated yaml.
type starterConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"database"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Collections []struct {
		Name   string `yaml:"name"`
		Public bool   `yaml:"public"`
	} `yaml:"collections"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initOutput); err == nil {
		overwrite := promptui.Prompt{
			Label:     fmt.Sprintf("%s already exists. Overwrite it", initOutput),
			IsConfirm: true,
		}
		if _, promptErr := overwrite.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "5720",
		Validate: func(input string) error {
			p, convErr := strconv.Atoi(input)
			if convErr != nil || p < 1 || p > 65535 {
				return errors.New("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	port, _ := strconv.Atoi(portStr)

	dbSelect := promptui.Select{
		Label: "Database type",
		Items: []string{"sqlite", "postgres"},
	}
	_, dbType, err := dbSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	dsnDefault := "filedepot.db"
	if dbType == "postgres" {
		dsnDefault = "postgres://localhost:5432/filedepot"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database connection string",
		Default: dsnDefault,
		Validate: func(input string) error {
			if input == "" {
				return errors.New("connection string is required")
			}
			return nil
		},
	}
	dsn, err := dsnPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	storagePrompt := promptui.Prompt{
		Label:   "Storage directory",
		Default: "./data",
	}
	storagePath, err := storagePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	collPrompt := promptui.Prompt{
		Label:   "Collection name",
		Default: "files",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("collection name is required")
			}
			return nil
		},
	}
	collName, err := collPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	public := false
	publicPrompt := promptui.Prompt{
		Label:     "Serve this collection publicly (no auth, path-addressed)",
		IsConfirm: true,
	}
	if _, promptErr := publicPrompt.Run(); promptErr == nil {
		public = true
	}

	var cfg starterConfig
	cfg.Server.Port = port
	cfg.Database.Type = dbType
	cfg.Database.DSN = dsn
	cfg.Storage.Path = storagePath
	cfg.Collections = append(cfg.Collections, struct {
		Name   string `yaml:"name"`
		Public bool   `yaml:"public"`
	}{Name: collName, Public: public})
	cfg.Log.Level = "info"

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(initOutput, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", initOutput, err)
	}

	fmt.Printf("Wrote %s\n", initOutput)
	fmt.Println("Start the server with: filedepot serve --config " + initOutput)
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		return nil
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
