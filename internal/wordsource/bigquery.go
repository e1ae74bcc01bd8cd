// Package wordsource loads word list entries from external stores.
package wordsource

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// BigQueryConfig locates a scored word table.
type BigQueryConfig struct {
	Project string

	// Table is the fully qualified `project.dataset.table` name. It must
	// expose word_key (STRING), score (INT64, nullable), and scope (STRING)
	// columns.
	Table string

	Location string

	// Scope filters the rows to one named word collection.
	Scope string
}

// LoadBigQuery runs the word query and materializes the rows as an in-memory
// source. Null scores fall back to wordlist.DefaultScore.
func LoadBigQuery(ctx context.Context, cfg BigQueryConfig) (wordlist.Source, error) {
	client, err := bigquery.NewClient(ctx, cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	defer client.Close()

	q := client.Query(fmt.Sprintf(
		"SELECT word_key, score FROM `%s` WHERE scope = @scope", cfg.Table))
	q.Parameters = []bigquery.QueryParameter{{Name: "scope", Value: cfg.Scope}}
	if cfg.Location != "" {
		q.Location = cfg.Location
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.Run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("status.Err: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Read: %w", err)
	}

	var entries []wordlist.Entry
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("it.Next: %w", err)
		}

		word, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row[0] is not a string: %v", row[0])
		}
		score := wordlist.DefaultScore
		if row[1] != nil {
			raw, ok := row[1].(int64)
			if !ok {
				return nil, fmt.Errorf("row[1] is not an int: %v", row[1])
			}
			score = int(raw)
		}
		entries = append(entries, wordlist.Entry{Canonical: word, Score: score})
	}

	return &wordlist.MemorySource{
		ID:    "bigquery:" + cfg.Scope,
		Words: entries,
	}, nil
}
