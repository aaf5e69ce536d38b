package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/ghostmail/internal/config"
	"github.com/flemzord/ghostmail/internal/security"
	"github.com/flemzord/ghostmail/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration and provision every module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(args[0])
			if err != nil {
				return err
			}
			level, err := cfg.Log.SlogLevel()
			if err != nil {
				return err
			}

			application, err := app.Build(cfg, app.NewLogger(cmd.ErrOrStderr(), level))
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()
			mods := application.Modules()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(mods))
			for _, m := range mods {
				fmt.Fprintf(out, "  %s\n", m.ModuleInfo().ID)
			}
			if show, _ := cmd.Flags().GetBool("show"); show {
				fmt.Fprintln(out)
				return showModules(out, cfg)
			}
			return nil
		},
	}
	cmd.Flags().Bool("show", false, "print the resolved module configuration with secrets redacted")
	return cmd
}

// showModules prints every module section after variable expansion, with
// secret-named keys and known credential shapes masked.
func showModules(w io.Writer, cfg *config.Config) error {
	redactor := security.NewRedactor()
	doc := make(map[string]any, len(cfg.Modules))
	for _, id := range config.Resolve(cfg) {
		node := cfg.Modules[id]
		section := map[string]any{}
		if node.Kind != 0 {
			if err := node.Decode(&section); err != nil {
				return fmt.Errorf("module %s: %w", id, err)
			}
		}
		redactor.RedactMap(section)
		doc[id] = section
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"modules": doc}); err != nil {
		return err
	}
	return enc.Close()
}

// starterAnswers is what config init asks for.
type starterAnswers struct {
	Token      string
	Mode       string
	WebhookURL string
	APIURL     string
	APIKey     string
	Sessions   string
	Gateway    bool
}

func defaultAnswers() starterAnswers {
	return starterAnswers{
		Mode:     "polling",
		Sessions: "sqlite",
	}
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")
			useDefaults, _ := cmd.Flags().GetBool("defaults")

			if output == "" {
				output = defaultConfigPath()
			}
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			answers := defaultAnswers()
			if !useDefaults {
				if err := starterForm(&answers).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("aborted")
					}
					return err
				}
			}

			data, err := renderStarterConfig(answers)
			if err != nil {
				return err
			}
			if err := writeConfig(output, data); err != nil {
				return err
			}
			return printNextSteps(cmd.OutOrStdout(), output, answers)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Where to write the file (default: user config dir)")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	cmd.Flags().Bool("defaults", false, "Skip the questions and use placeholders")
	return cmd
}

func starterForm(a *starterAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Leave empty to read it from $TELEGRAM_BOT_TOKEN").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token),
			huh.NewSelect[string]().
				Title("Update delivery").
				Options(
					huh.NewOption("Long polling - no public URL needed", "polling"),
					huh.NewOption("Webhook - Telegram calls the gateway", "webhook"),
				).
				Value(&a.Mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Placeholder("https://bot.example.com/webhooks/telegram").
				Value(&a.WebhookURL).
				Validate(validateRequired("Webhook URL")),
		).WithHideFunc(func() bool { return a.Mode != "webhook" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Mail API base URL").
				Description("Leave empty to read it from $GHOSTMAIL_API_URL").
				Placeholder("https://api.example.com/api").
				Value(&a.APIURL),
			huh.NewInput().
				Title("Mail API key").
				Description("Leave empty to read it from $GHOSTMAIL_API_KEY").
				EchoMode(huh.EchoModePassword).
				Value(&a.APIKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Session storage").
				Options(
					huh.NewOption("SQLite file in the data directory", "sqlite"),
					huh.NewOption("Redis", "redis"),
					huh.NewOption("Memory - lost on restart", "memory"),
				).
				Value(&a.Sessions),
			huh.NewConfirm().
				Title("Enable the HTTP gateway (health, metrics, admin API)?").
				Value(&a.Gateway),
		),
	)
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func orEnv(value, env string) string {
	if value == "" {
		return "${" + env + "}"
	}
	return value
}

// renderStarterConfig turns the answers into a configuration document.
// Secrets left blank become ${VAR} references.
func renderStarterConfig(a starterAnswers) ([]byte, error) {
	telegram := map[string]any{
		"token": orEnv(a.Token, "TELEGRAM_BOT_TOKEN"),
		"mode":  a.Mode,
	}
	if a.Mode == "webhook" {
		telegram["webhook_url"] = a.WebhookURL
		telegram["webhook_secret"] = "${TELEGRAM_WEBHOOK_SECRET}"
	}

	modules := map[string]any{
		"channel.telegram": telegram,
		"provider.ghostmail": map[string]any{
			"base_url": orEnv(a.APIURL, "GHOSTMAIL_API_URL"),
			"api_key":  orEnv(a.APIKey, "GHOSTMAIL_API_KEY"),
		},
	}
	switch a.Sessions {
	case "sqlite":
		modules["session.sqlite"] = map[string]any{}
	case "redis":
		modules["session.redis"] = map[string]any{"addr": "localhost:6379"}
	}
	if a.Gateway || a.Mode == "webhook" {
		modules["gateway.http"] = map[string]any{
			"bind": "127.0.0.1:8080",
			"auth": map[string]any{"bearer_token": "${GHOSTMAIL_ADMIN_TOKEN}"},
		}
	}

	doc := map[string]any{
		"version": "1",
		"log":     map[string]any{"level": "info"},
		"bot": map[string]any{
			"session_ttl": "1h",
			"rate_limit":  map[string]any{"events_per_min": 20},
		},
		"modules": modules,
	}
	return yaml.Marshal(doc)
}

func writeConfig(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printNextSteps(w io.Writer, path string, a starterAnswers) error {
	if _, err := fmt.Fprintf(w, "Wrote %s\n", path); err != nil {
		return err
	}
	var envs []string
	if a.Token == "" {
		envs = append(envs, "TELEGRAM_BOT_TOKEN")
	}
	if a.APIURL == "" {
		envs = append(envs, "GHOSTMAIL_API_URL")
	}
	if a.APIKey == "" {
		envs = append(envs, "GHOSTMAIL_API_KEY")
	}
	if a.Mode == "webhook" {
		envs = append(envs, "TELEGRAM_WEBHOOK_SECRET")
	}
	if a.Gateway || a.Mode == "webhook" {
		envs = append(envs, "GHOSTMAIL_ADMIN_TOKEN")
	}
	if len(envs) > 0 {
		fmt.Fprintln(w, "\nSet these environment variables before starting:")
		for _, e := range envs {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	_, err := fmt.Fprintf(w, "\nThen run: ghostmail config check %s\n", path)
	return err
}

func defaultConfigPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "ghostmail", "ghostmail.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "ghostmail", "ghostmail.yaml")
	}
	return "ghostmail.yaml"
}
