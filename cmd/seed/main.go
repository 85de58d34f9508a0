// seed submits a handful of batches and a couple of repeat URLs into the
// local dev database via the same enqueue path the HTTP API uses.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/enqueue"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/infrastructure/postgres"
)

var batches = [][]string{
	{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/contact",
	},
	{
		"https://blog.example.com/posts/1",
		"https://blog.example.com/posts/2",
	},
	{
		"https://example.com/", // duplicate URL across batches, exercises url dedup
		"https://news.example.com/today",
	},
}

var repeatURLs = []struct {
	url      string
	interval int
}{
	{"https://example.com/status", 3600},
	{"https://news.example.com/today", 14400},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	urlRepo := postgres.NewURLRepository(pool)
	batchRepo := postgres.NewBatchRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)
	repeatURLRepo := postgres.NewRepeatURLRepository(pool)

	svc := enqueue.New(urlRepo, batchRepo, jobRepo, repeatURLRepo)

	fmt.Println("Seed complete")
	fmt.Println()

	var totalJobs int
	for i, urls := range batches {
		result, err := svc.SubmitBatch(ctx, urls, 0, true, []string{"seed"})
		if err != nil {
			log.Fatalf("submit batch %d: %v", i, err)
		}
		fmt.Printf("  Batch %d: batch_id=%d jobs=%d\n", i+1, result.BatchID, result.JobCount)
		totalJobs += result.JobCount
	}

	fmt.Println()
	for _, r := range repeatURLs {
		rep, err := svc.DeclareRepeat(ctx, r.url, r.interval)
		if err != nil {
			log.Fatalf("declare repeat %s: %v", r.url, err)
		}
		fmt.Printf("  Repeat URL: id=%d url=%s interval=%ds\n", rep.ID, rep.URL, rep.Interval)
	}

	fmt.Println()
	fmt.Printf("  Jobs created: %d\n", totalJobs)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  curl -s http://localhost:8080/jobs")
	fmt.Println("  curl -s http://localhost:8080/batches")
	fmt.Println("  curl -s http://localhost:8080/repeat-urls")
	fmt.Println("  curl -s http://localhost:8080/stats")
	fmt.Println()
	fmt.Println("  The worker (go run ./cmd/worker) picks these jobs up on its next poll tick.")
}
