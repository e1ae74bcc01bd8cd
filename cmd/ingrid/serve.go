package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/spf13/cobra"

	ingrid "github.com/hoverbird/ingrid-core"
	"github.com/hoverbird/ingrid-core/internal/wordsource"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

var serveFlags struct {
	bigQueryProject  string
	bigQueryTable    string
	bigQueryLocation string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fill engine over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.bigQueryProject, "bigquery-project", "", "GCP project for word scope lookups")
	f.StringVar(&serveFlags.bigQueryTable, "bigquery-table", "", "fully qualified BigQuery word table")
	f.StringVar(&serveFlags.bigQueryLocation, "bigquery-location", "US", "BigQuery location")
}

type fillRequest struct {
	// Grid is the template: '#' blocks, '.' empty cells, letters prefilled.
	Grid string `json:"grid"`

	// Words holds inline word list lines ("word" or "word;score").
	Words []string `json:"words"`

	// WordScope, when set, loads additional words from the configured
	// BigQuery table.
	WordScope string `json:"wordScope"`

	MinScore           int    `json:"minScore"`
	MaxSharedSubstring int    `json:"maxSharedSubstring"`
	Seed               uint64 `json:"seed"`
}

type fillStatistics struct {
	States               int    `json:"states"`
	Backtracks           int    `json:"backtracks"`
	RestrictedBranchings int    `json:"restrictedBranchings"`
	Retries              int    `json:"retries"`
	Duration             string `json:"duration"`
}

type fillResponse struct {
	Success    bool            `json:"success"`
	Grid       string          `json:"grid,omitempty"`
	Statistics *fillStatistics `json:"statistics,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	funcframework.RegisterHTTPFunction("/fill", handleFill)

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	hostname := ""
	if localOnly := os.Getenv("LOCAL_ONLY"); localOnly == "true" {
		hostname = "127.0.0.1"
	}
	if err := funcframework.StartHostPort(hostname, port); err != nil {
		log.Fatalf("funcframework.StartHostPort: %v\n", err)
	}
	return nil
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Content-Type", "application/json")
}

func handleFill(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, `{"success": false, "error": "Method %s not allowed"}`, r.Method)
		return
	}

	var req fillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeResponse(w, fillResponse{Success: false, Error: fmt.Sprintf("Invalid JSON: %v", err)})
		return
	}

	resp := executeFill(r, req)
	if !resp.Success {
		w.WriteHeader(http.StatusBadRequest)
	}
	writeResponse(w, resp)
}

func executeFill(r *http.Request, req fillRequest) fillResponse {
	fail := func(err error) fillResponse {
		return fillResponse{Success: false, Error: err.Error()}
	}

	if strings.TrimSpace(req.Grid) == "" {
		return fail(fmt.Errorf("grid must not be empty"))
	}

	var sources []wordlist.Source
	if len(req.Words) > 0 {
		sources = append(sources, &wordlist.ContentsSource{
			ID:       "request",
			Contents: strings.Join(req.Words, "\n"),
		})
	}
	if req.WordScope != "" {
		if serveFlags.bigQueryProject == "" || serveFlags.bigQueryTable == "" {
			return fail(fmt.Errorf("word scopes are not enabled on this server"))
		}
		src, err := wordsource.LoadBigQuery(r.Context(), wordsource.BigQueryConfig{
			Project:  serveFlags.bigQueryProject,
			Table:    serveFlags.bigQueryTable,
			Location: serveFlags.bigQueryLocation,
			Scope:    req.WordScope,
		})
		if err != nil {
			return fail(fmt.Errorf("load word scope: %w", err))
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return fail(fmt.Errorf("no words given (set words or wordScope)"))
	}

	// Leave headroom before the platform kills the request.
	timeout := time.Minute
	if deadline, ok := r.Context().Deadline(); ok {
		timeout = time.Until(deadline) - 5*time.Second
	}

	filled, result, err := ingrid.FillGrid(req.Grid, sources, ingrid.GridOptions{
		MinScore:   req.MinScore,
		DupeWindow: req.MaxSharedSubstring,
		Seed:       req.Seed,
		Deadline:   time.Now().Add(timeout),
	})
	if err != nil {
		return fail(err)
	}

	s := result.Statistics
	return fillResponse{
		Success: true,
		Grid:    filled,
		Statistics: &fillStatistics{
			States:               s.States,
			Backtracks:           s.Backtracks,
			RestrictedBranchings: s.RestrictedBranchings,
			Retries:              s.Retries,
			Duration:             s.Duration.String(),
		},
	}
}

func writeResponse(w http.ResponseWriter, resp fillResponse) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error marshaling response: %v", err)
	}
}
