package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vyevs/ansi"
	"gopkg.in/yaml.v3"

	ingrid "github.com/hoverbird/ingrid-core"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// fillSettings is the fill command's configuration, loadable from a YAML
// file and overridable per-flag.
type fillSettings struct {
	Grid               string        `yaml:"grid"`
	Words              []string      `yaml:"words"`
	MinScore           int           `yaml:"minScore"`
	MaxSharedSubstring int           `yaml:"maxSharedSubstring"`
	Seed               uint64        `yaml:"seed"`
	Timeout            time.Duration `yaml:"timeout"`
}

var fillFlags struct {
	fillSettings
	configFile string
	color      bool
	stats      bool

	profile           bool
	profileFile       string
	memoryProfileFile string
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill a grid template from word list files",
	RunE:  runFill,
}

func init() {
	f := fillCmd.Flags()
	f.StringVar(&fillFlags.configFile, "config", "", "YAML file with fill settings")
	f.StringVar(&fillFlags.Grid, "grid", "", "file containing the grid template")
	f.StringSliceVar(&fillFlags.Words, "words", nil, "word list file (repeatable)")
	f.IntVar(&fillFlags.MinScore, "min-score", 0, "minimum word score (default 50)")
	f.IntVar(&fillFlags.MaxSharedSubstring, "max-shared-substring", 0, "forbid entries sharing a letter run of this length (3-10, 0 disables)")
	f.Uint64Var(&fillFlags.Seed, "seed", 0, "PRNG seed (0 uses the built-in default)")
	f.DurationVar(&fillFlags.Timeout, "timeout", time.Minute, "give up after this long")
	f.BoolVar(&fillFlags.color, "color", false, "colorize the filled grid")
	f.BoolVar(&fillFlags.stats, "stats", false, "print search statistics")
	f.BoolVar(&fillFlags.profile, "profile", false, "profile the fill")
	f.StringVar(&fillFlags.profileFile, "profile-file", "cpu.pprof", "file to write the CPU profile to")
	f.StringVar(&fillFlags.memoryProfileFile, "memory-profile-file", "mem.pprof", "file to write the memory profile to")
}

func runFill(cmd *cobra.Command, args []string) error {
	settings := fillFlags.fillSettings
	if fillFlags.configFile != "" {
		loaded, err := loadFillSettings(fillFlags.configFile)
		if err != nil {
			return err
		}
		// Flags set on the command line win over the config file.
		flags := cmd.Flags()
		if !flags.Changed("grid") {
			settings.Grid = loaded.Grid
		}
		if !flags.Changed("words") {
			settings.Words = loaded.Words
		}
		if !flags.Changed("min-score") {
			settings.MinScore = loaded.MinScore
		}
		if !flags.Changed("max-shared-substring") {
			settings.MaxSharedSubstring = loaded.MaxSharedSubstring
		}
		if !flags.Changed("seed") {
			settings.Seed = loaded.Seed
		}
		if !flags.Changed("timeout") && loaded.Timeout > 0 {
			settings.Timeout = loaded.Timeout
		}
	}

	if settings.Grid == "" {
		return fmt.Errorf("no grid template given (use --grid or a config file)")
	}
	if len(settings.Words) == 0 {
		return fmt.Errorf("no word list files given (use --words or a config file)")
	}

	template, err := os.ReadFile(settings.Grid)
	if err != nil {
		return fmt.Errorf("read grid template: %w", err)
	}
	sources := make([]wordlist.Source, 0, len(settings.Words))
	for _, path := range settings.Words {
		sources = append(sources, &wordlist.FileSource{ID: path, Path: path})
	}

	var mf *os.File
	if fillFlags.profile {
		f, err := os.Create(fillFlags.profileFile)
		if err != nil {
			return fmt.Errorf("create profile file: %w", err)
		}
		defer f.Close()

		mf, err = os.Create(fillFlags.memoryProfileFile)
		if err != nil {
			return fmt.Errorf("create memory profile file: %w", err)
		}
		defer mf.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	opts := ingrid.GridOptions{
		MinScore:   settings.MinScore,
		DupeWindow: settings.MaxSharedSubstring,
		Seed:       settings.Seed,
	}
	if settings.Timeout > 0 {
		opts.Deadline = time.Now().Add(settings.Timeout)
	}

	filled, result, err := ingrid.FillGrid(string(template), sources, opts)
	if err != nil {
		return err
	}

	fmt.Println(renderForTerminal(filled, fillFlags.color))
	if fillFlags.stats {
		s := result.Statistics
		fmt.Printf("states: %d  backtracks: %d  restricted branchings: %d  retries: %d\n",
			s.States, s.Backtracks, s.RestrictedBranchings, s.Retries)
		fmt.Printf("duration: %v (initial %v, choice %v, elimination %v)\n",
			s.Duration, s.InitialPropagation, s.ChoicePropagation, s.EliminationPropagation)
	}

	if mf != nil {
		pprof.WriteHeapProfile(mf)
	}
	return nil
}

func loadFillSettings(path string) (*fillSettings, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var settings fillSettings
	if err := yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &settings, nil
}

// renderForTerminal optionally colorizes a filled grid: letters green,
// blocks gray.
func renderForTerminal(filled string, color bool) string {
	if !color {
		return filled
	}
	var b strings.Builder
	for _, r := range filled {
		switch r {
		case '#':
			b.WriteString(ansi.FGColorName("light gray"))
		case '\n':
		default:
			b.WriteString(ansi.FGColorName("green"))
		}
		b.WriteRune(r)
	}
	b.WriteString(ansi.Clear)
	return b.String()
}
