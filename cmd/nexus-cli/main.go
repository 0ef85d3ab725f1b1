// nexus-cli is a command-line client for interacting with a nexusd node.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/apiclient"
)

// tokenFile returns the cached session token path under the data directory.
func tokenFile(dataDir string) string {
	return filepath.Join(dataDir, "cli-token")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	apiURL := "http://127.0.0.1:5000"
	dataDir := config.DefaultDataDir()

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--api" && len(args) > 1:
			apiURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--api="):
			apiURL = args[0][len("--api="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := apiclient.New(apiURL)
	if token, err := os.ReadFile(tokenFile(dataDir)); err == nil {
		client.SetToken(strings.TrimSpace(string(token)))
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "register":
		cmdRegister(client, cmdArgs)
	case "login":
		cmdLogin(client, cmdArgs, dataDir)
	case "logout":
		cmdLogout(dataDir)
	case "balance":
		cmdBalance(client)
	case "declare":
		cmdDeclare(client, cmdArgs)
	case "download":
		cmdDownload(client, cmdArgs)
	case "transfer":
		cmdTransfer(client, cmdArgs)
	case "mine":
		cmdMine(client)
	case "resources":
		cmdResources(client)
	case "search":
		cmdSearch(client, cmdArgs)
	case "myfiles":
		cmdMyFiles(client)
	case "report":
		cmdReport(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func cmdStatus(client *apiclient.Client) {
	stats, err := client.Stats()
	if err != nil {
		fatal("stats: %v", err)
	}
	fmt.Printf("Users:        %d\n", stats.TotalUsers)
	fmt.Printf("Chain height: %d\n", stats.BlockchainHeight)
	fmt.Printf("Pending txs:  %d\n", stats.PendingTransactions)
	fmt.Printf("Difficulty:   %d\n", stats.CurrentDifficulty)
	fmt.Printf("Chain valid:  %v\n", stats.IsValid)
}

func cmdRegister(client *apiclient.Client, args []string) {
	if len(args) != 1 {
		fatal("usage: nexus-cli register <username>")
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	if err := client.Register(args[0], string(password)); err != nil {
		fatal("register: %v", err)
	}
	fmt.Printf("User %s registered. Log in and mine once to confirm your endowment.\n", args[0])
}

func cmdLogin(client *apiclient.Client, args []string, dataDir string) {
	if len(args) != 1 {
		fatal("usage: nexus-cli login <username>")
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	role, err := client.Login(args[0], string(password))
	if err != nil {
		fatal("login: %v", err)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal("create data dir: %v", err)
	}
	if err := os.WriteFile(tokenFile(dataDir), []byte("demo-token-for-"+args[0]), 0600); err != nil {
		fatal("save session: %v", err)
	}
	fmt.Printf("Logged in as %s (%s)\n", args[0], role)
}

func cmdLogout(dataDir string) {
	if err := os.Remove(tokenFile(dataDir)); err != nil && !os.IsNotExist(err) {
		fatal("logout: %v", err)
	}
	fmt.Println("Logged out.")
}

func cmdBalance(client *apiclient.Client) {
	balance, err := client.Balance()
	if err != nil {
		fatal("balance: %v", err)
	}
	fmt.Printf("Balance: %s credits\n", strconv.FormatFloat(balance, 'f', -1, 64))
}

func cmdDeclare(client *apiclient.Client, args []string) {
	fs := flag.NewFlagSet("declare", flag.ExitOnError)
	category := fs.String("category", "other", "resource category")
	description := fs.String("description", "", "resource description")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 3 {
		fatal("usage: nexus-cli declare [--category=...] [--description=...] <name> <size_gb> <file_hash>")
	}
	sizeGB, err := strconv.ParseFloat(rest[1], 64)
	if err != nil || sizeGB <= 0 {
		fatal("size_gb must be a positive number")
	}

	err = client.Declare(apiclient.Resource{
		Name:        rest[0],
		SizeGB:      sizeGB,
		FileHash:    rest[2],
		Category:    *category,
		Description: *description,
	})
	if err != nil {
		fatal("declare: %v", err)
	}
	fmt.Printf("Resource %q declared. Credit arrives with the next mined block.\n", rest[0])
}

func cmdDownload(client *apiclient.Client, args []string) {
	if len(args) != 2 {
		fatal("usage: nexus-cli download <file_id> <owner>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("file_id must be a number")
	}
	if err := client.Download(id, args[1]); err != nil {
		fatal("download: %v", err)
	}
	fmt.Printf("Download of resource %d recorded. Payment confirms with the next mined block.\n", id)
}

func cmdTransfer(client *apiclient.Client, args []string) {
	if len(args) != 2 {
		fatal("usage: nexus-cli transfer <to> <amount>")
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		fatal("amount must be a positive number")
	}
	if err := client.Transfer(args[0], amount); err != nil {
		fatal("transfer: %v", err)
	}
	fmt.Printf("Transfer of %s credits to %s pending confirmation.\n", args[1], args[0])
}

func cmdMine(client *apiclient.Client) {
	result, err := client.Mine()
	if err != nil {
		fatal("mine: %v", err)
	}
	fmt.Printf("Block mined!\n")
	fmt.Printf("  Hash:   %s\n", result.BlockHash)
	fmt.Printf("  Reward: %s credits\n", strconv.FormatFloat(result.MiningReward, 'f', -1, 64))
}

func cmdResources(client *apiclient.Client) {
	resources, err := client.Resources()
	if err != nil {
		fatal("resources: %v", err)
	}
	printResources(resources)
}

func cmdSearch(client *apiclient.Client, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	keyword := fs.String("keyword", "", "keyword against name or description")
	category := fs.String("category", "", "exact category")
	minSize := fs.Float64("min-size", -1, "minimum size in GB (inclusive)")
	maxSize := fs.Float64("max-size", -1, "maximum size in GB (inclusive)")
	minSeeds := fs.Int("min-seeds", -1, "minimum seed count (inclusive)")
	fs.Parse(args)

	q := apiclient.SearchQuery{Keyword: *keyword, Category: *category}
	if *minSize >= 0 {
		q.MinSize = minSize
	}
	if *maxSize >= 0 {
		q.MaxSize = maxSize
	}
	if *minSeeds >= 0 {
		q.MinSeeds = minSeeds
	}

	results, err := client.Search(q)
	if err != nil {
		fatal("search: %v", err)
	}
	printResources(results)
}

func cmdMyFiles(client *apiclient.Client) {
	files, err := client.MyFiles()
	if err != nil {
		fatal("myfiles: %v", err)
	}
	printResources(files)
}

func cmdReport(client *apiclient.Client, args []string) {
	if len(args) < 2 {
		fatal("usage: nexus-cli report <file_id> <owner> [reason]")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("file_id must be a number")
	}
	reason := ""
	if len(args) > 2 {
		reason = strings.Join(args[2:], " ")
	}
	if err := client.Report(id, args[1], reason); err != nil {
		fatal("report: %v", err)
	}
	fmt.Printf("Resource %d reported.\n", id)
}

func printResources(resources []apiclient.Resource) {
	if len(resources) == 0 {
		fmt.Println("No resources.")
		return
	}
	fmt.Printf("%-5s %-36s %-10s %-10s %-6s %-8s %s\n",
		"ID", "NAME", "SIZE(GB)", "CATEGORY", "SEEDS", "ACTIVE", "UPLOADER")
	for _, r := range resources {
		name := r.Name
		if len(name) > 36 {
			name = name[:33] + "..."
		}
		fmt.Printf("%-5d %-36s %-10s %-10s %-6d %-8v %s\n",
			r.ID, name, strconv.FormatFloat(r.SizeGB, 'f', -1, 64),
			r.Category, r.Seeds, r.Active, r.Uploader)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `nexus-cli - command-line client for a nexusd node

Usage:
  nexus-cli [--api=URL] [--datadir=DIR] <command> [args]

Commands:
  status                                   Node and chain statistics
  register <username>                      Create an account and ledger identity
  login <username>                         Log in and cache the session token
  logout                                   Drop the cached session token
  balance                                  Confirmed credit balance
  declare <name> <size_gb> <file_hash>     Publish a resource
  download <file_id> <owner>               Pay for and download a resource
  transfer <to> <amount>                   Send credits to another user
  mine                                     Confirm pending transactions
  resources                                List all resources
  search [--keyword=... --category=...]    Search active resources
  myfiles                                  List your published resources
  report <file_id> <owner> [reason]        Report a resource for review

Global flags:
  --api=URL       Node API endpoint (default http://127.0.0.1:5000)
  --datadir=DIR   Data directory for the session token
`)
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
