// Command cli exports and imports the links table as JSON, for backups
// and migrations between storage backends.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nitipat21/linkly/pkg/adapters/repository/sqlite"
	"github.com/nitipat21/linkly/pkg/config"
	"github.com/nitipat21/linkly/pkg/core/domain"
)

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	repo, err := sqlite.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		doExport(repo)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		doImport(repo, *importFile)
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
}

func doExport(repo *sqlite.Repository) {
	links, err := repo.Dump(context.Background())
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		log.Fatalf("encoding failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d links\n", len(links))
}

func doImport(repo *sqlite.Repository, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s failed: %v", path, err)
	}

	var links []domain.Link
	if err := json.Unmarshal(data, &links); err != nil {
		log.Fatalf("decoding failed: %v", err)
	}

	imported, skipped := 0, 0
	for i := range links {
		link := links[i]
		link.ID = 0
		err := repo.Create(context.Background(), &link)
		switch {
		case errors.Is(err, domain.ErrCodeExists):
			// Existing codes are kept as-is.
			skipped++
		case err != nil:
			log.Fatalf("importing %q failed: %v", link.ShortCode, err)
		default:
			imported++
		}
	}
	fmt.Fprintf(os.Stderr, "imported %d links, skipped %d\n", imported, skipped)
}
