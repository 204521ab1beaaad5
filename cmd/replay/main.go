// Command replay runs recorded feed payloads through the alert engine and
// prints the alerts that would be announced. Files are processed in order
// against one change-detection store, so repeated payloads show up as
// suppressed.
//
// Usage:
//
//	go run ./cmd/replay -locale en internal/pipeline/testdata/*.json
//	go run ./cmd/replay -kind jma-tsunami latest.xml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/quake-alert/internal/dedup"
	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
	"github.com/couchcryptid/quake-alert/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// replayTime fixes ComposedAt so output is reproducible.
var replayTime = time.Date(2024, time.January, 1, 7, 10, 0, 0, time.UTC)

// kindPrefixes infers a source kind from a file name when -kind is not given.
var kindPrefixes = []struct {
	prefix string
	kind   domain.SourceKind
}{
	{"eew", domain.KindEEW},
	{"p2p_", domain.KindQuakeStream},
	{"history_551", domain.KindBulletinList},
	{"history_552", domain.KindTsunamiList},
	{"vtse51", domain.KindJMATsunami},
	{"vxse62", domain.KindJMALongPeriod},
}

func main() {
	kind := flag.String("kind", "", "source kind for every file (eew, quake-stream, bulletin-list, tsunami-list, jma-tsunami, jma-long-period); inferred from the file name when empty")
	locale := flag.String("locale", "ja", "phrasebook locale (ja or en)")
	asJSON := flag.Bool("json", false, "print alerts as JSON lines")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, os.Stderr, flag.Args(), domain.SourceKind(*kind), *locale, *asJSON))
}

func run(stdout, stderr io.Writer, paths []string, kind domain.SourceKind, locale string, asJSON bool) int {
	domain.SetClock(clockwork.NewFakeClockAt(replayTime))
	defer domain.SetClock(nil)

	book, err := domain.PhrasebookFor(locale)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	processor := pipeline.NewProcessor(dedup.NewStore(), domain.NewComposer(book), logger, observability.NewMetricsForTesting())

	failed := 0
	total := 0
	for _, path := range paths {
		k := kind
		if k == "" {
			var ok bool
			if k, ok = inferKind(path); !ok {
				fmt.Fprintf(stderr, "%s: cannot infer kind, use -kind\n", path)
				failed++
				continue
			}
		}

		body, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed++
			continue
		}

		alerts, err := processor.Process(domain.RawPayload{Source: "replay", Kind: k, Body: body, ReceivedAt: replayTime})
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed++
			continue
		}

		if !asJSON {
			fmt.Fprintf(stdout, "── %s (%s): %d alert(s)\n", filepath.Base(path), k, len(alerts))
		}
		for _, a := range alerts {
			total++
			if asJSON {
				line, _ := json.Marshal(a)
				fmt.Fprintln(stdout, string(line))
				continue
			}
			fmt.Fprintf(stdout, "[%s] %s\n%s\n", a.Class, a.Cue, a.Text)
		}
	}

	if !asJSON {
		fmt.Fprintf(stdout, "\n%d file(s), %d alert(s), %d failed\n", len(paths), total, failed)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func inferKind(path string) (domain.SourceKind, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, p := range kindPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind, true
		}
	}
	return "", false
}
