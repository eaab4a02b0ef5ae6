package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agentwarden/warden/internal/api"
	"github.com/agentwarden/warden/internal/audit"
	"github.com/agentwarden/warden/internal/completion"
	"github.com/agentwarden/warden/internal/config"
	"github.com/agentwarden/warden/internal/confirm"
	"github.com/agentwarden/warden/internal/daemon"
	"github.com/agentwarden/warden/internal/fileutil"
	"github.com/agentwarden/warden/internal/logger"
	"github.com/agentwarden/warden/internal/session"
	"github.com/agentwarden/warden/internal/store"
	"github.com/agentwarden/warden/internal/trust"
	"github.com/agentwarden/warden/internal/tui"
	"github.com/agentwarden/warden/internal/tui/builder"
	"github.com/agentwarden/warden/internal/tui/prompt"
	"github.com/agentwarden/warden/internal/tui/rulelist"
)

// Version is set at build time via ldflags: -X main.Version=x.y.z
var Version = "1.0.0"

var log = logger.New("main")

func main() {
	// Shell completion: when COMP_LINE is set the binary only emits
	// completions and exits.
	if completion.Run() {
		return
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "check":
			runCheck(os.Args[2:])
			return
		case "confirm":
			runConfirm(os.Args[2:])
			return
		case "list":
			runList(os.Args[2:])
			return
		case "allow":
			runAllow(os.Args[2:])
			return
		case "remove":
			runRemove(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "stop":
			runStop()
			return
		case "status":
			runStatus(os.Args[2:])
			return
		case "logs":
			runLogs(os.Args[2:])
			return
		case "audit":
			runAudit(os.Args[2:])
			return
		case "completion":
			runCompletion(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			return
		case "version", "-v", "--version":
			runVersion(os.Args[2:])
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
	}

	// No subcommand - show help
	printUsage()
}

// =============================================================================
// Shared helpers
// =============================================================================

// loadConfig loads the config file, falling back to defaults when it is
// missing or unreadable.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// openStore builds the rule store for the configured paths.
func openStore(cfg *config.Config) *store.Store {
	return store.New(cfg.Trust.ProfileRoot, cfg.Trust.GlobalPath)
}

// resolveTool parses a tool id flag. An empty value defaults to
// execute_bash, the common case for CLI use.
func resolveTool(name string) (trust.Tool, error) {
	if name == "" {
		return trust.ToolExecuteBash, nil
	}
	t := trust.Tool(name)
	if !t.Known() {
		known := make([]string, 0, 4)
		for _, k := range trust.KnownTools() {
			known = append(known, k.String())
		}
		return "", fmt.Errorf("unknown tool %q (known: %s)", name, strings.Join(known, ", "))
	}
	return t, nil
}

// scopeFor resolves the target rule scope from the -profile/-global
// flag pair. -global wins.
func scopeFor(profile string, global bool) store.Scope {
	if global {
		return store.GlobalScope()
	}
	return store.ProfileScope(profile)
}

// joinCommand reassembles the command from the remaining CLI args.
func joinCommand(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// clampLines bounds the -n line count for the logs command.
func clampLines(n int) int {
	if n < 1 {
		return 50
	}
	if n > 10000 {
		return 10000
	}
	return n
}

// printDecision renders a decision for human eyes.
func printDecision(d trust.Decision) {
	fmt.Printf("%s %s %s\n", tui.Prefix(), tui.OutcomeBadge(d.Outcome.String()), tui.ReasonBadge(string(d.Reason)))
	switch d.Reason {
	case trust.ReasonUserRule:
		fmt.Printf("  matched rule: %s\n", tui.StylePattern.Render(d.Rule))
	case trust.ReasonDangerousPattern:
		fmt.Printf("  dangerous syntax: %q (%s)\n", d.Marker, d.Tier)
	}
}

// =============================================================================
// check
// =============================================================================

// runCheck evaluates a command offline and reports the decision.
// Exit code 0 means auto-approve, 1 means confirmation is required.
func runCheck(args []string) {
	checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
	toolName := checkFlags.String("tool", "", "Tool id (default execute_bash)")
	profile := checkFlags.String("profile", "", "Profile whose rules apply")
	configPath := checkFlags.String("config", "", "Path to configuration file")
	jsonOutput := checkFlags.Bool("json", false, "Output as JSON")
	_ = checkFlags.Parse(args)

	command := joinCommand(checkFlags.Args())
	if command == "" {
		fmt.Fprintln(os.Stderr, "Usage: warden check [-tool <tool>] [-profile <name>] <command>")
		os.Exit(2)
	}

	tool, err := resolveTool(*toolName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	engine := trust.NewEngine(openStore(cfg))
	d := engine.Evaluate(context.Background(), *profile, tool, command)

	if *jsonOutput {
		out, _ := json.MarshalIndent(d, "", "  ")
		fmt.Println(string(out))
	} else {
		printDecision(d)
	}

	if !d.Approved() {
		os.Exit(1)
	}
}

// =============================================================================
// confirm
// =============================================================================

// runConfirm evaluates a command and, when confirmation is required,
// walks the interactive prompt and optional rule creation.
// Exit code 0 means the command was approved, 1 means it was not.
func runConfirm(args []string) {
	confirmFlags := flag.NewFlagSet("confirm", flag.ExitOnError)
	toolName := confirmFlags.String("tool", "", "Tool id (default execute_bash)")
	profile := confirmFlags.String("profile", "", "Profile whose rules apply")
	global := confirmFlags.Bool("global", false, "Store a created rule in the global scope")
	configPath := confirmFlags.String("config", "", "Path to configuration file")
	_ = confirmFlags.Parse(args)

	command := joinCommand(confirmFlags.Args())
	if command == "" {
		fmt.Fprintln(os.Stderr, "Usage: warden confirm [-tool <tool>] [-profile <name>] <command>")
		os.Exit(2)
	}

	tool, err := resolveTool(*toolName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	st := openStore(cfg)
	engine := trust.NewEngine(st)

	interactive := tui.Interactive()
	req := confirm.Request{
		Profile:     *profile,
		Tool:        tool,
		Command:     command,
		Interactive: interactive,
	}
	if *global {
		req.RuleScope = store.GlobalScope()
	}
	f := confirm.NewFlow(engine, st, req)

	d := f.Evaluate(context.Background())
	if d.Approved() {
		_ = f.Proceed()
		printDecision(d)
		return
	}

	// Dangerous commands may be approved once but never become rules.
	allowRule := interactive && tool.ConfirmableWithTrust() && d.Reason != trust.ReasonDangerousPattern

	choice, err := prompt.Run(prompt.Request{
		Tool:              tool,
		Command:           command,
		Decision:          d,
		AllowRuleCreation: allowRule,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch choice {
	case prompt.ChoiceApprove:
		_ = f.Accept()
	case prompt.ChoiceCreateRule:
		if err := f.BeginRuleCreation(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := builder.Run(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		_ = f.Reject()
	}

	if !f.Approved() {
		tui.PrintError("Command rejected")
		os.Exit(1)
	}

	if rule := f.CreatedRule(); rule != nil {
		tui.PrintSuccess(fmt.Sprintf("Trust rule created: %s", rule.Pattern))
	}
	tui.PrintSuccess("Command approved")
}

// =============================================================================
// list / allow / remove
// =============================================================================

// collectEntries gathers rules for display: global scope first, then
// the profile's own scope, matching evaluation order.
func collectEntries(st *store.Store, profile string, globalOnly bool) []rulelist.Entry {
	var entries []rulelist.Entry

	appendScope := func(scope store.Scope, label string) {
		cfg := st.Load(scope)
		for _, tool := range cfg.Tools() {
			for _, r := range cfg.Rules(tool) {
				entries = append(entries, rulelist.Entry{Tool: tool, Scope: label, Rule: r})
			}
		}
	}

	appendScope(store.GlobalScope(), "global")
	if !globalOnly {
		scope := store.ProfileScope(profile)
		appendScope(scope, scope.Profile())
	}
	return entries
}

// runList shows the stored trust rules grouped by tool.
func runList(args []string) {
	listFlags := flag.NewFlagSet("list", flag.ExitOnError)
	profile := listFlags.String("profile", "", "Profile to list (default \"default\")")
	global := listFlags.Bool("global", false, "List only the global scope")
	configPath := listFlags.String("config", "", "Path to configuration file")
	jsonOutput := listFlags.Bool("json", false, "Output as JSON")
	interactive := listFlags.Bool("interactive", false, "Browse rules in an interactive list")
	_ = listFlags.Parse(args)

	cfg := loadConfig(*configPath)
	st := openStore(cfg)
	entries := collectEntries(st, *profile, *global)

	if *jsonOutput {
		out, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(out))
		return
	}

	title := "Warden Trust Rules"
	if *global {
		title += " (global)"
	}
	var err error
	if *interactive {
		err = rulelist.Render(entries, title)
	} else {
		err = rulelist.RenderPlain(entries, title)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runAllow adds a trust rule from the command line.
func runAllow(args []string) {
	allowFlags := flag.NewFlagSet("allow", flag.ExitOnError)
	toolName := allowFlags.String("tool", "", "Tool id (default execute_bash)")
	command := allowFlags.String("command", "", "Pattern to trust (exact or trailing *)")
	description := allowFlags.String("description", "", "Optional note stored with the rule")
	profile := allowFlags.String("profile", "", "Profile to store the rule in")
	global := allowFlags.Bool("global", false, "Store in the global scope")
	configPath := allowFlags.String("config", "", "Path to configuration file")
	_ = allowFlags.Parse(args)

	if *command == "" {
		fmt.Fprintln(os.Stderr, "Usage: warden allow -command <pattern> [-tool <tool>] [-description <text>]")
		os.Exit(2)
	}

	tool, err := resolveTool(*toolName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	st := openStore(cfg)
	scope := scopeFor(*profile, *global)

	if err := st.AddRule(scope, tool, trust.NewRule(*command, *description)); err != nil {
		if verr, ok := trust.AsValidationError(err); ok {
			fmt.Fprintf(os.Stderr, "Invalid rule: %s\n", verr.Reason)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tui.PrintSuccess(fmt.Sprintf("Rule added to %s: %s %s", scope, tool, *command))
}

// runRemove removes one trust rule, or all rules for a tool with -all.
func runRemove(args []string) {
	removeFlags := flag.NewFlagSet("remove", flag.ExitOnError)
	toolName := removeFlags.String("tool", "", "Tool id (default execute_bash)")
	command := removeFlags.String("command", "", "Pattern to remove")
	all := removeFlags.Bool("all", false, "Remove every rule for the tool")
	profile := removeFlags.String("profile", "", "Profile to remove from")
	global := removeFlags.Bool("global", false, "Remove from the global scope")
	configPath := removeFlags.String("config", "", "Path to configuration file")
	_ = removeFlags.Parse(args)

	tool, err := resolveTool(*toolName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	st := openStore(cfg)
	scope := scopeFor(*profile, *global)

	if *all {
		if err := st.RemoveAll(scope, tool); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tui.PrintSuccess(fmt.Sprintf("All %s rules removed from %s", tool, scope))
		return
	}

	if *command == "" {
		fmt.Fprintln(os.Stderr, "Usage: warden remove -command <pattern> [-tool <tool>] [-all]")
		os.Exit(2)
	}

	removed, err := st.RemoveRule(scope, tool, *command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !removed {
		fmt.Fprintf(os.Stderr, "No rule %q for %s in %s\n", *command, tool, scope)
		os.Exit(1)
	}
	tui.PrintSuccess(fmt.Sprintf("Rule removed from %s: %s %s", scope, tool, *command))
}

// =============================================================================
// serve
// =============================================================================

// runServe runs the decision server in the foreground until interrupted.
func runServe(args []string) {
	if running, pid := daemon.IsRunning(); running {
		fmt.Printf("Warden is already running [PID %d]\n", pid)
		os.Exit(1)
	}

	serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := serveFlags.String("config", "", "Path to configuration file")
	socketPath := serveFlags.String("socket", "", "Unix socket path (default from config)")
	port := serveFlags.Int("port", -1, "Loopback TCP port, 0 disables (default from config)")
	logLevel := serveFlags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	noColor := serveFlags.Bool("no-color", false, "Disable colored log output")

	// SECURITY: the WARDEN_DB_KEY environment variable is preferred
	// over this flag, which is visible in process listings.
	dbKey := serveFlags.String("db-key", "", "Audit database encryption key (prefer WARDEN_DB_KEY env var)")
	_ = serveFlags.Parse(args)

	cfg := loadConfig(*configPath)
	if *socketPath != "" {
		cfg.Server.SocketPath = *socketPath
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = *logLevel
	}
	if *noColor {
		cfg.Server.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	secrets, err := config.LoadSecretsWithDefaults(*dbKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
		os.Exit(1)
	}
	if err := secrets.ValidateDBKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := daemon.WritePID(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write PID file: %v\n", err)
		os.Exit(1)
	}
	defer daemon.CleanupPID()

	logger.SetGlobalLevelFromString(cfg.Server.LogLevel)
	if cfg.Server.NoColor {
		logger.SetColored(false)
	}

	// Tee logs into the log file so `warden logs` works while serve
	// stays in the foreground.
	logFile, err := fileutil.SecureOpenFile(daemon.LogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		log.Warn("Log file unavailable: %v", err)
	} else {
		defer logFile.Close()
		logger.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	// Trust store + engine
	st := openStore(cfg)
	engine := trust.NewEngine(st)

	var watcher *store.Watcher
	if cfg.Trust.Watch {
		watcher, err = store.NewWatcher(st)
		if err != nil {
			log.Warn("Rule watcher unavailable: %v", err)
		} else if err := watcher.Start(); err != nil {
			log.Warn("Rule watcher failed to start: %v", err)
			watcher = nil
		}
	}
	defer func() {
		if watcher != nil {
			_ = watcher.Stop()
		}
	}()

	// Session overrides
	sessions := session.NewManager(time.Duration(cfg.Session.TTLMinutes) * time.Minute)

	// Audit log
	var auditStorage *audit.Storage
	var retention *audit.Retention
	if cfg.Audit.Enabled {
		key := secrets.DBKey
		if key == "" {
			key = cfg.Audit.EncryptionKey
		}
		auditStorage, err = audit.NewStorage(cfg.Audit.DBPath, key)
		if err != nil {
			log.Error("Failed to open audit database: %v", err)
			os.Exit(1)
		}
		defer auditStorage.Close()

		if cfg.Audit.RetentionDays > 0 {
			retention = audit.NewRetention(auditStorage, cfg.Audit.RetentionDays, cfg.Audit.PurgeSchedule)
			if err := retention.Start(); err != nil {
				log.Warn("Audit retention scheduler failed to start: %v", err)
			} else {
				defer retention.Stop()
			}
		}
		log.Info("Audit log: %s (encrypted: %v)", cfg.Audit.DBPath, auditStorage.IsEncrypted())
	}

	server := api.NewServer(engine, st, sessions, auditStorage, Version)

	// Unix socket listener (named pipe on Windows)
	sock := cfg.Server.SocketPath
	if sock == "" {
		sock = daemon.SocketFile()
	}
	ln, err := api.Listen(sock)
	if err != nil {
		log.Error("Failed to listen on %s: %v", sock, err)
		os.Exit(1)
	}
	defer api.CleanupSocket(sock)

	httpSrv := &http.Server{
		Handler: server.Handler(),
		// SECURITY: header timeout prevents Slowloris-style stalls
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("Server error: %v", err)
			os.Exit(1)
		}
	}()
	log.Info("Warden listening on %s", sock)

	// Optional loopback TCP listener
	var tcpSrv *http.Server
	if cfg.Server.Port > 0 {
		tcpLn, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port))
		if err != nil {
			log.Error("Failed to listen on port %d: %v", cfg.Server.Port, err)
			os.Exit(1)
		}
		tcpSrv = &http.Server{
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := tcpSrv.Serve(tcpLn); err != nil && err != http.ErrServerClosed {
				log.Error("Server error: %v", err)
				os.Exit(1)
			}
		}()
		actualPort := tcpLn.Addr().(*net.TCPAddr).Port
		if err := daemon.WritePort(actualPort); err != nil {
			log.Warn("Failed to write port file: %v", err)
		}
		log.Info("Warden listening on 127.0.0.1:%d", actualPort)
	} else {
		_ = daemon.WritePort(0)
	}

	log.Info("Profiles: %s", cfg.Trust.ProfileRoot)
	log.Info("Logs: %s", daemon.LogFileDisplay())

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}
	if tcpSrv != nil {
		if err := tcpSrv.Shutdown(ctx); err != nil {
			log.Error("Server forced to shutdown: %v", err)
		}
		_ = daemon.WritePort(0)
	}

	log.Info("Warden stopped")
}

// =============================================================================
// stop / status / logs
// =============================================================================

// runStop handles the stop subcommand
func runStop() {
	running, pid := daemon.IsRunning()
	if !running {
		fmt.Println("Warden is not running")
		return
	}

	fmt.Printf("Stopping warden [PID %d]...\n", pid)

	if err := daemon.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Warden stopped")
}

// checkHealth probes the TCP health endpoint when a port file exists.
func checkHealth(port int) bool {
	if port <= 0 {
		return false
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port)) //nolint:noctx // short probe with client timeout
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStatus handles the status subcommand
func runStatus(args []string) {
	statusFlags := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := statusFlags.Bool("json", false, "Output as JSON")
	_ = statusFlags.Parse(args)

	running, pid := daemon.IsRunning()
	port := daemon.ReadPort()
	healthy := running && checkHealth(port)

	if *jsonOutput {
		out, _ := json.MarshalIndent(map[string]any{
			"running": running,
			"pid":     pid,
			"port":    port,
			"healthy": healthy,
			"socket":  daemon.SocketFile(),
			"logs":    daemon.LogFile(),
		}, "", "  ")
		fmt.Println(string(out))
		return
	}

	if !running {
		fmt.Println("Warden is not running")
		return
	}

	fmt.Printf("Warden is running [PID %d]\n", pid)
	if port > 0 {
		status := "unreachable"
		if healthy {
			status = "healthy"
		}
		fmt.Printf("  API:    127.0.0.1:%d (%s)\n", port, status)
	}
	fmt.Printf("  Socket: %s\n", daemon.SocketFile())
	fmt.Printf("  Logs:   %s\n", daemon.LogFileDisplay())
}

// runLogs handles the logs subcommand
func runLogs(args []string) {
	logsFlags := flag.NewFlagSet("logs", flag.ExitOnError)
	follow := logsFlags.Bool("f", false, "Follow log output")
	lines := logsFlags.Int("n", 50, "Number of lines to show")
	_ = logsFlags.Parse(args)

	n := clampLines(*lines)
	logFile := daemon.LogFile()

	if *follow {
		// Use tail -f
		fmt.Printf("Following %s (Ctrl+C to stop)...\n\n", logFile)
		cmd := exec.Command("tail", "-f", logFile)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		_ = cmd.Run() //nolint:errcheck // user will see tail output/errors
	} else {
		// Show last N lines
		cmd := exec.Command("tail", "-n", fmt.Sprintf("%d", n), logFile) //nolint:gosec // G204: args are from trusted flag parsing
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "No logs found. Is warden running?\n")
		}
	}
}

// =============================================================================
// audit
// =============================================================================

// openAudit opens the audit database read path used by the CLI. WAL
// mode allows reading while the server holds the database open.
func openAudit(cfg *config.Config, dbKey string) *audit.Storage {
	if !cfg.Audit.Enabled {
		fmt.Fprintln(os.Stderr, "Audit logging is disabled (set audit.enabled=true in config)")
		os.Exit(1)
	}

	secrets, err := config.LoadSecretsWithDefaults(dbKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
		os.Exit(1)
	}
	key := secrets.DBKey
	if key == "" {
		key = cfg.Audit.EncryptionKey
	}

	storage, err := audit.NewStorage(cfg.Audit.DBPath, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open audit database: %v\n", err)
		os.Exit(1)
	}
	return storage
}

// runAudit queries the decision audit log.
func runAudit(args []string) {
	auditFlags := flag.NewFlagSet("audit", flag.ExitOnError)
	limit := auditFlags.Int("limit", 50, "Maximum records to show")
	minutes := auditFlags.Int("minutes", 0, "Look-back window in minutes (default 60)")
	filter := auditFlags.String("filter", "", "Command glob filter, e.g. \"git *\"")
	toolName := auditFlags.String("tool", "", "Filter by tool id")
	profile := auditFlags.String("profile", "", "Filter by profile")
	stats := auditFlags.Bool("stats", false, "Show aggregate counts instead of records")
	export := auditFlags.String("export", "", "Export matching records to a .jsonl.zst file")
	configPath := auditFlags.String("config", "", "Path to configuration file")
	dbKey := auditFlags.String("db-key", "", "Audit database encryption key (prefer WARDEN_DB_KEY env var)")
	_ = auditFlags.Parse(args)

	cfg := loadConfig(*configPath)
	storage := openAudit(cfg, *dbKey)
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *stats {
		s, err := storage.GetStats(ctx, *minutes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Decisions: %d total, %d auto-approved, %d confirmations\n",
			s.Total, s.AutoApproved, s.Confirmations)
		for reason, count := range s.ByReason {
			fmt.Printf("  %-20s %d\n", reason, count)
		}
		return
	}

	q := audit.Query{
		Minutes: *minutes,
		Limit:   *limit,
		Profile: *profile,
		Tool:    *toolName,
		Command: *filter,
	}

	if *export != "" {
		out, err := os.Create(*export)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		n, err := storage.Export(ctx, out, q)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		tui.PrintSuccess(fmt.Sprintf("Exported %d records to %s", n, *export))
		return
	}

	records, err := storage.Recent(ctx, q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No matching decisions")
		return
	}
	for _, r := range records {
		fmt.Printf("%s  %s  %-12s %s %s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			tui.OutcomeBadge(r.Outcome),
			r.Tool,
			tui.StyleCommand.Render(r.Command),
			tui.ReasonBadge(r.Reason))
	}
}

// =============================================================================
// completion / version / usage
// =============================================================================

// runCompletion manages shell tab-completion.
func runCompletion(args []string) {
	completionFlags := flag.NewFlagSet("completion", flag.ExitOnError)
	doInstall := completionFlags.Bool("install", false, "Install shell completion")
	doUninstall := completionFlags.Bool("uninstall", false, "Uninstall shell completion")
	_ = completionFlags.Parse(args)

	switch {
	case *doInstall:
		if completion.IsInstalled() {
			fmt.Println("Shell completion is already installed")
			return
		}
		if err := completion.Install(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tui.PrintSuccess("Shell completion installed (restart your shell)")
	case *doUninstall:
		if err := completion.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tui.PrintSuccess("Shell completion uninstalled")
	default:
		if completion.IsInstalled() {
			fmt.Println("Shell completion: installed")
		} else {
			fmt.Println("Shell completion: not installed")
			fmt.Println("Install with: warden completion -install")
		}
	}
}

// runVersion prints the version.
func runVersion(args []string) {
	versionFlags := flag.NewFlagSet("version", flag.ExitOnError)
	jsonOutput := versionFlags.Bool("json", false, "Output as JSON")
	_ = versionFlags.Parse(args)

	if *jsonOutput {
		out, _ := json.Marshal(map[string]string{"version": Version})
		fmt.Println(string(out))
		return
	}
	fmt.Printf("warden version %s\n", Version)
}

func printUsage() {
	fmt.Println(`Warden - Command trust decisions for AI agents

Usage:
  warden check [flags] <command>     Evaluate a command (exit 0 approve, 1 confirm)
  warden confirm [flags] <command>   Evaluate and prompt when confirmation is required

  warden list [flags]                List trust rules grouped by tool
  warden allow [flags]               Add a trust rule
  warden remove [flags]              Remove trust rules

  warden serve [flags]               Run the decision server in the foreground
  warden stop                        Stop a running server
  warden status [-json]              Check if the server is running
  warden logs [-f] [-n N]            View server logs (-f to follow)
  warden audit [flags]               Query the decision audit log

  warden completion [-install]       Manage shell tab-completion
  warden help                        Show this help message
  warden version                     Show version

Common Flags:
  -tool string         Tool id: execute_bash, execute_cmd, fs_write, use_api
  -profile string      Profile whose rules apply (default "default")
  -global              Target the global scope shared by all profiles
  -config string       Path to configuration file (default ~/.warden/config.yaml)

Serve Flags:
  -socket string       Unix socket path (default ~/.warden/warden.sock)
  -port int            Loopback TCP port, 0 disables (default from config)
  -log-level string    Log level: trace, debug, info, warn, error
  -no-color            Disable colored log output

Environment Variables (preferred for secrets):
  WARDEN_DB_KEY        Audit database encryption key

Examples:
  warden check "git status"                         Evaluate a command offline
  warden confirm -profile dev "npm install lodash"  Prompt and optionally create a rule
  warden allow -command "npm *" -description "node tooling"
  warden serve -port 7070                           Serve on socket and loopback TCP
  warden audit -filter "git *" -limit 20            Recent git decisions`)
}
