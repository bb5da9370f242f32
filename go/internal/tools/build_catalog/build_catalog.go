package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/jeopardy/go/internal/dbconfig"
	"github.com/mcdev12/jeopardy/go/internal/episodes"
	"github.com/mcdev12/jeopardy/go/internal/game"
)

func main() {
	in := flag.String("in", "jeopardy.csv", "j-archive CSV export")
	out := flag.String("out", "jeopardy.json", "catalog JSON to write")
	seed := flag.Bool("seed", false, "also upsert episodes into Postgres")
	flag.Parse()

	// 1) Convert the CSV export
	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open CSV: %v\n", err)
		os.Exit(1)
	}
	catalog, rows, err := episodes.ConvertJArchive(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "convert CSV: %v\n", err)
		os.Exit(1)
	}

	// 2) Write the catalog the gateway loads
	data, err := json.Marshal(catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal catalog: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog written to %s: %d episodes from %d rows\n", *out, len(catalog), rows)

	if !*seed {
		return
	}

	// 3) Upsert into the episodes table
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	inserted, skipped, errs := seedEpisodes(ctx, pool, catalog)
	fmt.Printf(
		"Episodes seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		len(catalog), inserted, skipped, errs,
	)
}

func seedEpisodes(ctx context.Context, pool *pgxpool.Pool, catalog map[string]game.Episode) (inserted, skipped, errs int) {
	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS episodes (
          ep_num   TEXT PRIMARY KEY,
          air_date TEXT NOT NULL,
          info     TEXT NOT NULL DEFAULT '',
          data     JSONB NOT NULL
        )
    `); err != nil {
		fmt.Fprintf(os.Stderr, "create episodes table: %v\n", err)
		return 0, 0, 1
	}

	nums := make([]string, 0, len(catalog))
	for num := range catalog {
		nums = append(nums, num)
	}
	sort.Strings(nums)

	for _, num := range nums {
		ep := catalog[num]
		data, err := json.Marshal(ep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error encoding episode %s: %v\n", num, err)
			errs++
			continue
		}
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO episodes (ep_num, air_date, info, data)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (ep_num) DO NOTHING
        `, num, ep.AirDate, ep.Info, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting episode %s: %v\n", num, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	return inserted, skipped, errs
}
