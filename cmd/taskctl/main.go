package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apiclient "github.com/splax/taskpulse/pkg/api/client"
	"golang.org/x/term"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandRegister(args)
	case "login":
		err = commandLogin(args)
	case "whoami":
		err = commandWhoami(args)
	case "list":
		err = commandList(args)
	case "add":
		err = commandAdd(args)
	case "done":
		err = commandDone(args)
	case "undo":
		err = commandUndo(args)
	case "rm":
		err = commandRemove(args)
	case "metrics":
		err = commandMetrics(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:3000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := resolvePassword(*password)
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Register(ctx, *email, secret)
	if err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("registered: %s (id=%d)\n", user.Email, user.ID)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:3000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := resolvePassword(*password)
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandWhoami(args []string) error {
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Me(ctx, token)
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\t%s\n", user.ID, user.Email, user.Role)
	return nil
}

func commandList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	all := fs.Bool("all", false, "Include completed tasks")
	fs.Parse(args)

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tasks, err := client.ListTasks(ctx, token)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Done && !*all {
			continue
		}
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Printf("%d\t[%s]\t%s\n", t.ID, mark, t.Title)
	}
	return nil
}

func commandAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fs.Parse(args)

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		return errors.New("usage: taskctl add <title>")
	}

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, err := client.CreateTask(ctx, token, title)
	if err != nil {
		return err
	}
	fmt.Printf("task created: %d %s\n", created.ID, created.Title)
	return nil
}

func commandDone(args []string) error {
	return toggleTask(args, true)
}

func commandUndo(args []string) error {
	return toggleTask(args, false)
}

func toggleTask(args []string, done bool) error {
	id, err := parseTaskID(args)
	if err != nil {
		return err
	}

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updated, err := client.ToggleTask(ctx, token, id, done)
	if err != nil {
		return err
	}
	state := "open"
	if updated.Done {
		state = "done"
	}
	fmt.Printf("task %d marked %s\n", updated.ID, state)
	return nil
}

func commandRemove(args []string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return err
	}

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.DeleteTask(ctx, token, id); err != nil {
		return err
	}
	fmt.Printf("task %d deleted\n", id)
	return nil
}

func commandMetrics(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	snapshot, err := client.Metrics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("total=%d success=%d error=%d\n", snapshot.Total, snapshot.Success, snapshot.Error)
	fmt.Printf("latency: <50ms=%d <100ms=%d <300ms=%d >=300ms=%d\n",
		snapshot.Latency.Lt50, snapshot.Latency.Lt100, snapshot.Latency.Lt300, snapshot.Latency.Gte300)
	return nil
}

func parseTaskID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("task id is required")
	}
	id, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid task id: %s", args[0])
	}
	return id, nil
}

func resolvePassword(supplied string) (string, error) {
	secret := strings.TrimSpace(supplied)
	if secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func authedClient() (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, "", errors.New("please login first using 'taskctl login'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: "http://localhost:3000"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:3000"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "taskctl", "config.json"), nil
}

func printUsage() {
	fmt.Printf("taskctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	taskctl register --email user@example.com [--password secret] [--api http://localhost:3000]
	taskctl login --email user@example.com [--password secret] [--api http://localhost:3000]
	taskctl whoami
	taskctl list [--all]
	taskctl add <title>
	taskctl done <id>
	taskctl undo <id>
	taskctl rm <id>
	taskctl metrics
	taskctl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
