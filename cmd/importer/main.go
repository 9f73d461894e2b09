// Command importer loads the static street-address data set into the
// addresses table.  It is meant to run once against a fresh database;
// reruns are skipped unless -force is given so a fat-fingered invocation
// cannot double the pool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/pizza-rush/internal/config"
	"github.com/iliyamo/pizza-rush/internal/database"
	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/repository"
)

// townData mirrors the data file layout: town -> street -> house numbers.
type townData map[string]map[string][]string

func main() {
	path := flag.String("data", "data/addresses.json", "path to the address data file")
	force := flag.Bool("force", false, "import even when the table is not empty")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	repo := repository.NewAddressRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !*force {
		n, err := repo.Count(ctx)
		if err != nil {
			log.Fatalf("count addresses: %v", err)
		}
		if n > 0 {
			log.Printf("addresses table already has %d rows; use -force to import anyway", n)
			return
		}
	}

	addrs, err := loadAddresses(*path)
	if err != nil {
		log.Fatalf("load %s: %v", *path, err)
	}
	if len(addrs) == 0 {
		log.Fatalf("no addresses found in %s", *path)
	}

	// Insert in chunks to stay under MySQL's placeholder limit.
	const chunk = 500
	for i := 0; i < len(addrs); i += chunk {
		end := min(i+chunk, len(addrs))
		if err := repo.BulkInsert(ctx, addrs[i:end]); err != nil {
			log.Fatalf("insert addresses %d..%d: %v", i, end, err)
		}
	}
	log.Printf("imported %d addresses", len(addrs))
}

func loadAddresses(path string) ([]model.Address, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data townData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	var addrs []model.Address
	for town, streets := range data {
		for street, numbers := range streets {
			for _, num := range numbers {
				addrs = append(addrs, model.Address{
					HouseNumber: num,
					Street:      street,
					Town:        town,
				})
			}
		}
	}
	return addrs, nil
}
