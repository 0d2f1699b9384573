package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haskel/vitals/internal/config"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: `Load the configuration file (or the defaults), validate it and print
the result with credentials redacted.`,
	RunE: runConfig,
}

var validateOnly bool

func init() {
	configCmd.Flags().BoolVar(&validateOnly, "validate", false, "only validate, don't print")
	rootCmd.AddCommand(configCmd)
}

type validationReport struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		if jsonOut {
			printJSON(os.Stdout, validationReport{Error: err.Error()})
		} else {
			fmt.Printf("Configuration invalid: %v\n", err)
		}
		return err
	}

	if validateOnly {
		if jsonOut {
			printJSON(os.Stdout, validationReport{Valid: true})
		} else {
			fmt.Println("Configuration is valid")
		}
		return nil
	}

	return printConfig(os.Stdout, redact(*cfg))
}

// redact returns a copy safe to print.
func redact(cfg config.Config) config.Config {
	if cfg.Auth.Password != "" {
		cfg.Auth.Password = redacted
	}
	if cfg.Debug.Auth.Token != "" {
		cfg.Debug.Auth.Token = redacted
	}
	return cfg
}

func printConfig(w io.Writer, cfg config.Config) error {
	if jsonOut {
		return printJSON(w, cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
