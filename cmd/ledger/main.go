package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/logging"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
)

const usage = `Usage: ledger [-config file] <command> [args]

Commands:
  list       [--limit N]            List physical ledger entries
  list-sem   [--limit N]            List semantic ledger entries
  find       <term>                 Search physical entries (LIKE)
  find-sem   <term>                 Search semantic entries (LIKE)
  delete     <term> [--yes]         Delete physical entries by term
  delete-sem <term> [--yes]         Delete semantic entries by term
  stats                             Show counts and newest entries
  purge      [--days N] [--which files|semantic|all]
  vacuum                            Compact the database
`

func main() {
	configFile := flag.String("config", "", "Configuration file path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadOrEnvWithPath(*configFile)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "ledger")

	repo, err := storage.NewStorage(cfg.Ledger.DatabasePath)
	if err != nil {
		logger.Error("failed to open ledger", "path", cfg.Ledger.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(repo, cmd, args); err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(repo storage.Repository, cmd string, args []string) error {
	switch cmd {
	case "list":
		limit := intFlag(args, "limit", 50)
		records, err := repo.ListFiles(limit)
		if err != nil {
			return err
		}
		printFiles(records)
	case "list-sem":
		limit := intFlag(args, "limit", 50)
		records, err := repo.ListSemantic(limit)
		if err != nil {
			return err
		}
		printSemantic(records)
	case "find":
		term, err := positional(args)
		if err != nil {
			return err
		}
		records, err := repo.FindFiles(term)
		if err != nil {
			return err
		}
		printFiles(records)
	case "find-sem":
		term, err := positional(args)
		if err != nil {
			return err
		}
		records, err := repo.FindSemantic(term)
		if err != nil {
			return err
		}
		printSemantic(records)
	case "delete":
		return deleteByTerm(args, repo.FindFiles, repo.DeleteFiles, printFiles)
	case "delete-sem":
		return deleteByTerm(args, repo.FindSemantic, repo.DeleteSemantic, printSemantic)
	case "stats":
		st, err := repo.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("physical entries:  %d (last %s)\n", st.FileCount, st.LastFileAt)
		fmt.Printf("semantic entries:  %d (last %s)\n", st.SemanticCount, st.LastSemanticAt)
	case "purge":
		days := intFlag(args, "days", 180)
		which := stringFlag(args, "which", "all")
		target := storage.PurgeTarget(which)
		if target != storage.PurgeFiles && target != storage.PurgeSemantic && target != storage.PurgeAll {
			return fmt.Errorf("unknown purge target %q", which)
		}
		n, err := repo.PurgeOlderThan(days, target)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d entries older than %d days\n", n, days)
	case "vacuum":
		if err := repo.Vacuum(); err != nil {
			return err
		}
		fmt.Println("vacuum done")
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// deleteByTerm previews the matching rows and asks for confirmation
// unless --yes was given.
func deleteByTerm[R any](args []string, find func(string) ([]R, error), del func(string) (int64, error), print func([]R)) error {
	term, err := positional(args)
	if err != nil {
		return err
	}

	records, err := find(term)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("nothing matches")
		return nil
	}
	print(records)

	if !boolFlag(args, "yes") && !confirm(fmt.Sprintf("Delete these %d entries? (y/N) ", len(records))) {
		fmt.Println("aborted")
		return nil
	}

	n, err := del(term)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d entries\n", n)
	return nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y")
}

func printFiles(records []storage.FileRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tFILENAME\tCATEGORY\tOCCURRED_AT\tAMOUNT_CENTS\tCREATED_AT")
	for _, r := range records {
		hash := r.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", hash, r.Filename, r.Category, r.OccurredAt, r.AmountCents, r.CreatedAt)
	}
	w.Flush()
}

func printSemantic(records []storage.SemanticRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tOCCURRED_AT_MIN\tAMOUNT_CENTS\tCREATED_AT")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Category, r.OccurredAtMin, r.AmountCents, r.CreatedAt)
	}
	w.Flush()
}

// Tiny positional/flag helpers: subcommands share one flat argument
// list, e.g. "find --limit 10 term".

func positional(args []string) (string, error) {
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "--") {
			if args[i] == "--yes" {
				continue
			}
			i++ // skip the flag value
			continue
		}
		return args[i], nil
	}
	return "", fmt.Errorf("missing argument")
}

func boolFlag(args []string, name string) bool {
	for _, a := range args {
		if a == "--"+name {
			return true
		}
	}
	return false
}

func stringFlag(args []string, name, fallback string) string {
	for i, a := range args {
		if a == "--"+name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return fallback
}

func intFlag(args []string, name string, fallback int) int {
	raw := stringFlag(args, name, "")
	if raw == "" {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v <= 0 {
		return fallback
	}
	return v
}
