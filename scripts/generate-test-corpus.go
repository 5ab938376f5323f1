//go:build ignore

// Package main generates a synthetic document corpus for benchmarking the
// scanner, hasher, and indexer against a realistic mix of file types.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var reportTemplate = `%s Report — %s

Prepared for the %s team. This document covers %s activity and
the resulting recommendations.

Summary

The %s review found that %s processes are %s. Overall impact on
%s throughput is estimated at %d%%.

Findings

- %s was the primary driver of the observed change.
- %s requires follow-up before the next review cycle.
- Stakeholders in %s should be notified of the outcome.

Recommendations

1. Schedule a follow-up on %s within the next quarter.
2. Track %s metrics weekly instead of monthly.
3. Assign an owner for %s remediation.

Appendix

Reference id: %s-%d
`

var noteTemplate = `%s notes — %s

Talked to %s about %s. Action items:

- follow up on %s by end of week
- loop in %s on the %s question
- file is %s-%d, keep this path stable

Next sync covers %s.
`

var logTemplate = `[%s] level=info component=%s msg="%s %s" duration_ms=%d record=%s-%d
[%s] level=warn component=%s msg="%s flagged for %s" record=%s-%d
[%s] level=info component=%s msg="%s completed" record=%s-%d
`

var csvTemplate = `id,category,owner,status,notes
%s-%d,%s,%s,open,"%s"
%s-%d,%s,%s,closed,"%s"
%s-%d,%s,%s,open,"%s"
`

var (
	subjects = []string{
		"Budget", "Staffing", "Facilities", "Procurement", "Compliance",
		"Onboarding", "Vendor", "Renewal", "Incident", "Migration",
		"Audit", "Training", "Inventory", "Maintenance", "Scheduling",
	}
	teams = []string{
		"finance", "operations", "legal", "engineering", "support",
		"facilities", "hr", "procurement", "security", "logistics",
	}
	adjectives = []string{
		"stable", "volatile", "improving", "under review", "delayed",
		"on track", "at risk", "resolved", "pending", "escalated",
	}
	people = []string{
		"Alex", "Priya", "Jordan", "Sam", "Morgan",
		"Casey", "Riley", "Taylor", "Devon", "Quinn",
	}
	dates = []string{
		"2026-01-14", "2026-02-03", "2026-02-21", "2026-03-09", "2026-04-17",
		"2026-05-02", "2026-05-30", "2026-06-11", "2026-07-08", "2026-07-29",
	}
)

func main() {
	flag.Parse()
	rand.Seed(*seed)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	subdirs := []string{"reports", "notes", "logs", "data"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating subdirectory %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d files in %s...\n", *numFiles, *outputDir)

	reportFiles := *numFiles * 35 / 100
	noteFiles := *numFiles * 35 / 100
	logFiles := *numFiles * 20 / 100
	csvFiles := *numFiles - reportFiles - noteFiles - logFiles

	generated := 0
	for i := 0; i < reportFiles; i++ {
		if err := generateReportFile(i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating report file %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < noteFiles; i++ {
		if err := generateNoteFile(i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating note file %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < logFiles; i++ {
		if err := generateLogFile(i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating log file %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < csvFiles; i++ {
		if err := generateCSVFile(i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating data file %d: %v\n", i, err)
			continue
		}
		generated++
	}

	fmt.Printf("Generated %d files successfully.\n", generated)
}

func randomWord(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

func recordID(subject string) string {
	return strings.ToUpper(subject[:3])
}

func generateReportFile(index int) error {
	subject := randomWord(subjects)
	team := randomWord(teams)
	status := randomWord(adjectives)
	date := randomWord(dates)
	pct := rand.Intn(40) - 10

	content := fmt.Sprintf(reportTemplate,
		subject, date,
		team, subject,
		subject, team, status,
		team, pct,
		subject, team, team,
		subject, subject, subject,
		recordID(subject), index,
	)

	filename := filepath.Join(*outputDir, "reports", fmt.Sprintf("%s-report-%d.md", strings.ToLower(subject), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateNoteFile(index int) error {
	subject := randomWord(subjects)
	person := randomWord(people)
	other := randomWord(people)
	team := randomWord(teams)
	date := randomWord(dates)

	content := fmt.Sprintf(noteTemplate,
		subject, date,
		person, subject,
		subject, other, team,
		recordID(subject), index,
		subject,
	)

	filename := filepath.Join(*outputDir, "notes", fmt.Sprintf("%s-%d.txt", strings.ToLower(subject), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateLogFile(index int) error {
	subject := randomWord(subjects)
	team := randomWord(teams)
	d1, d2, d3 := randomWord(dates), randomWord(dates), randomWord(dates)

	content := fmt.Sprintf(logTemplate,
		d1, team, subject, "processing", rand.Intn(500), recordID(subject), index,
		d2, team, subject, team, recordID(subject), index,
		d3, team, subject, recordID(subject), index,
	)

	filename := filepath.Join(*outputDir, "logs", fmt.Sprintf("%s-%d.log", strings.ToLower(team), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateCSVFile(index int) error {
	subject := randomWord(subjects)
	p1, p2, p3 := randomWord(people), randomWord(people), randomWord(people)

	content := fmt.Sprintf(csvTemplate,
		recordID(subject), index*3, strings.ToLower(subject), p1, randomWord(adjectives),
		recordID(subject), index*3+1, strings.ToLower(subject), p2, randomWord(adjectives),
		recordID(subject), index*3+2, strings.ToLower(subject), p3, randomWord(adjectives),
	)

	filename := filepath.Join(*outputDir, "data", fmt.Sprintf("%s-%d.csv", strings.ToLower(subject), index))
	return os.WriteFile(filename, []byte(content), 0644)
}
