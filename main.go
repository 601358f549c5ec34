package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"avatarprobe/internal"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type GlobalFlags struct {
	Config     string
	Profile    string
	BaseURL    string
	UserID     string
	SubjectID  string
	RandomUser bool
	LogLevel   string
	Output     string
	NoProgress bool
	Help       bool
}

func main() {
	globalFlags, remaining := parseGlobalFlags(os.Args[1:])

	if err := internal.LoadEnvFile(".env"); err != nil {
		internal.LogWarn("Ignoring .env: %v", err)
	}

	if globalFlags.LogLevel != "" {
		level, err := parseLogLevelFlag(globalFlags.LogLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level: %s (must be 1-3 or error, info, debug)\n", globalFlags.LogLevel)
			os.Exit(1)
		}
		internal.SetLogLevel(level)
	}

	if globalFlags.Output != "" {
		format, err := internal.ParseOutputFormat(globalFlags.Output)
		if err != nil {
			internal.LogError("%v", err)
			os.Exit(1)
		}
		internal.SetOutputFormat(format)
	}

	if globalFlags.Help {
		printUsage()
		return
	}

	command := "run"
	var commandArgs []string
	if len(remaining) > 0 {
		command = remaining[0]
		commandArgs = remaining[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case "run":
		handleRunCommand(ctx, globalFlags)
	case "health":
		handleHealthCommand(ctx, globalFlags)
	case "upload":
		handleUploadCommand(ctx, globalFlags)
	case "access":
		handleAccessCommand(ctx, globalFlags, commandArgs)
	case "classify":
		handleClassifyCommand(globalFlags, commandArgs)
	case "inspect":
		handleInspectCommand(ctx, globalFlags, commandArgs)
	case "config":
		handleConfigCommand(globalFlags, commandArgs)
	case "version", "--version", "-v":
		handleVersionCommand(commandArgs)
	case "help", "--help", "-h":
		printUsage()
	default:
		internal.LogError("Unknown command: %s", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: avatarprobe [global-flags] <command> [args]")
	fmt.Println("")
	fmt.Println("Global Flags:")
	fmt.Println("  --config <path>      Explicit config file path")
	fmt.Println("  --profile, -p <name> Profile to use (local, production, config-check)")
	fmt.Println("  --base-url <url>     Override the API base URL")
	fmt.Println("  --user, -u <id>      Upload as this user id")
	fmt.Println("  --subject <id>       Upload to /v1/subjects/<id>/avatar instead")
	fmt.Println("  --random-user        Upload as a fresh random user id")
	fmt.Println("  --log-level, -l <n>  Log level (1=error, 2=info, 3=debug)")
	fmt.Println("  --output, -o <fmt>   Output format: text or json")
	fmt.Println("  --no-progress        Hide the upload progress bar")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run                Full probe: health, upload, checks (default)")
	fmt.Println("  health             Check GET /health only")
	fmt.Println("  upload             Upload a generated test image only")
	fmt.Println("  access <url>       Check that an avatar URL can be fetched")
	fmt.Println("  classify <url>     Check an avatar URL against expected bucket/region")
	fmt.Println("  inspect <url>      Look up an avatar URL's object in S3")
	fmt.Println("  config             Config file management")
	fmt.Println("  version            Show version information")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  avatarprobe")
	fmt.Println("  avatarprobe --profile production")
	fmt.Println("  avatarprobe -p config-check")
	fmt.Println("  avatarprobe --base-url http://localhost:8014 --random-user")
	fmt.Println("  avatarprobe --subject 71958203-e43a-4510-bdfd-a9459388e830 upload")
	fmt.Println("  avatarprobe -o json run")
	fmt.Println("  avatarprobe access https://watchme-avatars.s3.ap-southeast-2.amazonaws.com/users/x/avatar.jpg")
	fmt.Println("  avatarprobe config show")
	fmt.Println("  avatarprobe config list")
}

func parseGlobalFlags(args []string) (*GlobalFlags, []string) {
	flags := &GlobalFlags{}

	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--config":
			if i+1 < len(args) {
				flags.Config = args[i+1]
				i++
			}
		case "--profile", "-p":
			if i+1 < len(args) {
				flags.Profile = args[i+1]
				i++
			}
		case "--base-url":
			if i+1 < len(args) {
				flags.BaseURL = args[i+1]
				i++
			}
		case "--user", "-u":
			if i+1 < len(args) {
				flags.UserID = args[i+1]
				i++
			}
		case "--subject":
			if i+1 < len(args) {
				flags.SubjectID = args[i+1]
				i++
			}
		case "--random-user":
			flags.RandomUser = true
		case "--log-level", "-l":
			if i+1 < len(args) {
				flags.LogLevel = args[i+1]
				i++
			}
		case "--output", "-o":
			if i+1 < len(args) {
				flags.Output = args[i+1]
				i++
			}
		case "--no-progress":
			flags.NoProgress = true
		case "--help", "-h":
			flags.Help = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return flags, remaining
}

// parseLogLevelFlag accepts the numeric levels as well as their names.
func parseLogLevelFlag(value string) (internal.LogLevel, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n < 1 || n > 3 {
			return 0, fmt.Errorf("log level %d out of range", n)
		}
		return internal.LogLevel(n), nil
	}
	return internal.ParseLogLevel(value)
}

func resolveOptions(globalFlags *GlobalFlags) internal.ResolveOptions {
	return internal.ResolveOptions{
		ConfigPath: globalFlags.Config,
		Profile:    globalFlags.Profile,
		BaseURL:    globalFlags.BaseURL,
		UserID:     globalFlags.UserID,
		SubjectID:  globalFlags.SubjectID,
		RandomUser: globalFlags.RandomUser,
	}
}

// loadResolvedConfig resolves the profile and applies the config file's
// defaults for anything not set on the command line.
func loadResolvedConfig(command string, globalFlags *GlobalFlags) *internal.ResolvedConfig {
	resolved, err := internal.ResolveConfig(resolveOptions(globalFlags))
	if err != nil {
		exitWithError(command, fmt.Errorf("error loading config: %w", err))
	}

	if globalFlags.LogLevel == "" && resolved.LogLevel != "" {
		if level, err := internal.ParseLogLevel(resolved.LogLevel); err == nil {
			internal.SetLogLevel(level)
		} else {
			internal.LogWarn("Ignoring config log_level: %v", err)
		}
	}
	if globalFlags.Output == "" && resolved.Output != "" {
		if format, err := internal.ParseOutputFormat(resolved.Output); err == nil {
			internal.SetOutputFormat(format)
		} else {
			internal.LogWarn("Ignoring config output: %v", err)
		}
	}

	resolved.Progress = resolved.Progress && !globalFlags.NoProgress && !internal.IsJSONOutput()
	return resolved
}

func exitWithError(command string, err error) {
	internal.OutputError(command, err)
	os.Exit(1)
}

func newPrinter(cfg *internal.ResolvedConfig) *internal.Printer {
	var w io.Writer = internal.OutputWriter()
	if internal.IsJSONOutput() {
		w = io.Discard
	}
	return internal.NewPrinter(w, cfg.BodyPreview, cfg.ShowHeaders)
}

// emit writes the JSON envelope in JSON mode; text output has already been
// printed step by step.
func emit(command string, success bool, data interface{}) {
	if !internal.IsJSONOutput() {
		return
	}
	var err error
	if success {
		err = internal.OutputResult(command, data)
	} else {
		err = internal.OutputFailure(command, data)
	}
	if err != nil {
		internal.LogError("Failed to write JSON output: %v", err)
	}
}

func handleRunCommand(ctx context.Context, globalFlags *GlobalFlags) {
	cfg := loadResolvedConfig("run", globalFlags)

	runner := internal.NewRunner(cfg, internal.NewProbeFromConfig(cfg), newPrinter(cfg))
	if cfg.NeedsStorage() {
		store, err := internal.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			internal.LogWarn("S3 unavailable, skipping inspect and archive: %v", err)
		} else {
			if cfg.Inspect {
				runner.WithInspector(internal.NewObjectInspector(store))
			}
			if cfg.Archive.Bucket != "" {
				runner.WithArchiver(internal.NewS3ReportArchiver(store, cfg.Archive.Bucket, cfg.Archive.Prefix))
			}
		}
	}

	report := runner.Run(ctx)

	success := report.ExitCode == 0 && report.Upload != nil && report.Upload.Success
	emit("run", success, report)
	os.Exit(report.ExitCode)
}

func handleHealthCommand(ctx context.Context, globalFlags *GlobalFlags) {
	cfg := loadResolvedConfig("health", globalFlags)

	result := internal.NewProbeFromConfig(cfg).CheckHealth(ctx, cfg.BaseURL)
	newPrinter(cfg).Health(result)

	emit("health", result.Healthy, result)
	if !result.Healthy {
		os.Exit(1)
	}
}

func handleUploadCommand(ctx context.Context, globalFlags *GlobalFlags) {
	cfg := loadResolvedConfig("upload", globalFlags)
	printer := newPrinter(cfg)

	img, err := internal.GenerateImage(cfg.Image)
	if err != nil {
		exitWithError("upload", fmt.Errorf("failed to create test image: %w", err))
	}

	printer.UploadStart(cfg.Target, internal.JoinURL(cfg.BaseURL, cfg.Target.Path()))
	outcome := internal.NewProbeFromConfig(cfg).UploadAvatar(ctx, cfg.BaseURL, cfg.Target, img)
	printer.Upload(outcome)

	emit("upload", outcome.Success, outcome)
	if !outcome.Success {
		os.Exit(1)
	}
}

func handleAccessCommand(ctx context.Context, globalFlags *GlobalFlags, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: avatarprobe [global-flags] access <url>")
		fmt.Println("")
		fmt.Println("Fetch an avatar URL with the profile's access method, following one redirect.")
		return
	}

	cfg := loadResolvedConfig("access", globalFlags)

	outcome := internal.NewProbeFromConfig(cfg).VerifyAccess(ctx, args[0])
	newPrinter(cfg).Access(outcome)

	emit("access", outcome.Reachable(), outcome)
	if !outcome.Reachable() {
		os.Exit(1)
	}
}

func handleClassifyCommand(globalFlags *GlobalFlags, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: avatarprobe [global-flags] classify <url>")
		fmt.Println("")
		fmt.Println("Compare an avatar URL with the profile's expected bucket and region.")
		fmt.Println("The config-check profile carries the expectations by default:")
		fmt.Println("  avatarprobe -p config-check classify <url>")
		return
	}

	cfg := loadResolvedConfig("classify", globalFlags)
	if cfg.Expect == (internal.Expectations{}) {
		internal.LogWarn("Profile '%s' has no expectations configured; try --profile config-check", cfg.Profile)
	}

	classification := internal.ClassifyURL(args[0], cfg.Expect)
	newPrinter(cfg).Classification(classification, cfg.Expect)

	success := classification.Bucket != internal.VerdictIncorrect && classification.Region != internal.VerdictIncorrect
	emit("classify", success, classification)
}

func handleInspectCommand(ctx context.Context, globalFlags *GlobalFlags, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: avatarprobe [global-flags] inspect <url>")
		fmt.Println("")
		fmt.Println("Look the object behind an avatar URL up with S3 HeadObject.")
		fmt.Println("Credentials come from the profile's storage block or AWS_* variables.")
		return
	}

	cfg := loadResolvedConfig("inspect", globalFlags)

	store, err := internal.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		exitWithError("inspect", fmt.Errorf("error creating S3 client: %w", err))
	}

	inspection := internal.NewObjectInspector(store).Inspect(ctx, args[0], 0)
	newPrinter(cfg).Inspection(inspection)

	emit("inspect", inspection.Found, inspection)
	if !inspection.Found {
		os.Exit(1)
	}
}

func handleConfigCommand(globalFlags *GlobalFlags, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: avatarprobe config <subcommand>")
		fmt.Println("")
		fmt.Println("Config Subcommands:")
		fmt.Println("  show [--profile <name>]  Show current config or specific profile")
		fmt.Println("  list                     List all profiles")
		fmt.Println("  init [path]              Create default config file")
		return
	}

	subcommand := args[0]

	switch subcommand {
	case "show":
		handleConfigShow(globalFlags, args[1:])
	case "list":
		handleConfigList(globalFlags)
	case "init":
		handleConfigInit(args[1:])
	default:
		fmt.Printf("Unknown config subcommand: %s\n", subcommand)
	}
}

func handleConfigShow(globalFlags *GlobalFlags, args []string) {
	localFlags, _ := parseGlobalFlags(args)
	if localFlags.Config != "" {
		globalFlags.Config = localFlags.Config
	}
	if localFlags.Profile != "" {
		globalFlags.Profile = localFlags.Profile
	}

	if internal.IsJSONOutput() || globalFlags.Profile != "" {
		resolved, err := internal.ResolveConfig(resolveOptions(globalFlags))
		if err != nil {
			exitWithError("config show", fmt.Errorf("error loading config: %w", err))
		}

		accessCheck := "disabled"
		if resolved.VerifyAccess {
			accessCheck = resolved.AccessMethod
		}

		if internal.IsJSONOutput() {
			emit("config show", true, internal.ConfigShowResult{
				Profile:     resolved.Profile,
				BaseURL:     resolved.BaseURL,
				Target:      resolved.Target,
				HealthGate:  resolved.HealthGate,
				AccessCheck: accessCheck,
			})
			return
		}

		fmt.Printf("Profile: %s\n", resolved.Profile)
		fmt.Printf("  Base URL: %s\n", resolved.BaseURL)
		fmt.Printf("  Target: %s\n", resolved.Target)
		fmt.Printf("  Timeouts: health %s, upload %s, access %s\n",
			resolved.HealthTimeout, resolved.UploadTimeout, resolved.AccessTimeout)
		fmt.Printf("  Health Gate: %s\n", resolved.HealthGate)
		fmt.Printf("  Access Check: %s\n", accessCheck)
		fmt.Printf("  Image: %dx%d %s\n", resolved.Image.Width, resolved.Image.Height, resolved.Image.Filename)
		if resolved.Classify {
			fmt.Printf("  Expect: bucket %s, region %s\n", resolved.Expect.Bucket, resolved.Expect.Region)
		}
		if resolved.Storage.Endpoint != "" {
			fmt.Printf("  Storage Endpoint: %s\n", resolved.Storage.Endpoint)
		}
		if resolved.Archive.Bucket != "" {
			fmt.Printf("  Archive: s3://%s/%s\n", resolved.Archive.Bucket, resolved.Archive.Prefix)
		}
		return
	}

	config, err := internal.LoadConfig(globalFlags.Config)
	if err != nil {
		exitWithError("config show", fmt.Errorf("error loading config: %w", err))
	}
	fmt.Print(config.String())
}

func handleConfigList(globalFlags *GlobalFlags) {
	config, err := internal.LoadConfig(globalFlags.Config)
	if err != nil {
		exitWithError("config list", fmt.Errorf("error loading config: %w", err))
	}

	if internal.IsJSONOutput() {
		emit("config list", true, internal.ConfigListResult{
			Profiles:       config.GetProfileNames(),
			DefaultProfile: config.DefaultProfile,
		})
		return
	}

	fmt.Printf("Available profiles:\n")
	for _, name := range config.GetProfileNames() {
		marker := " "
		if name == config.DefaultProfile {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
}

func handleConfigInit(args []string) {
	configPath := "avatarprobe.json5"
	if len(args) > 0 {
		configPath = args[0]
	}

	if _, err := os.Stat(configPath); err == nil {
		internal.LogError("Config file %s already exists", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(internal.DefaultConfigTemplate), 0644); err != nil {
		internal.LogError("Error creating config file: %v", err)
		os.Exit(1)
	}

	internal.LogInfo("Created config file: %s", configPath)
}

func handleVersionCommand(args []string) {
	if internal.IsJSONOutput() {
		emit("version", true, internal.VersionResult{Version: version, Commit: commit, Date: date})
		return
	}

	showFull := false
	for _, arg := range args {
		if arg == "--full" || arg == "--detailed" {
			showFull = true
			break
		}
	}

	if showFull {
		fmt.Printf("avatarprobe version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	} else {
		fmt.Println(version)
	}
}
