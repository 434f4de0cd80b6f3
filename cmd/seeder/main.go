package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/vectorforge/batchpipe"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage"
)

var sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"A gentle breeze rustled the leaves of the old oak tree.",
	"The lighthouse beam cut through fog, guiding sailors safely.",
	"Rain drummed on the rooftop, creating a soothing rhythm.",
	"The ancient library held stories that never faded.",
	"Beneath the waves, coral gardens shimmered in colors unseen.",
	"A mysterious map led them to a forgotten treasure.",
	"The desert dunes shifted silently under a pale moon.",
	"She painted the sunset with bold strokes of crimson and gold.",
	"The wind carried scents of jasmine from distant gardens.",
	"A lone wolf howled, echoing into the vast night.",
	"The moon rose slowly, casting silver light on the lake.",
	"The train rattled through tunnels carved into stone.",
	"A gentle snowfall blanketed the city in quiet white.",
	"The river's current carried leaves downstream like paper boats.",
	"They explored caves filled with stalactites glittering like chandeliers.",
	"The old map showed roads that no longer existed.",
	"He carved a wooden boat from a single piece of oak.",
	"They watched fireworks burst in colors across the night sky.",
	"The old house creaked as the wind blew through its windows.",
	"The night sky glittered with countless stars.",
	"The old ship's hull creaked as it sailed across calm seas.",
	"A bright comet streaked past, leaving a trail of light.",
	"The sky turned orange as the sun dipped below the horizon.",
	"The abandoned lighthouse still broadcasts its warning every third Tuesday.",
	"Coffee tastes better when nobody's watching.",
	"The algorithm dreamed it was a butterfly sorting itself.",
	"The server room developed opinions about the backup schedule.",
	"The cat debugged the production database at 3 AM.",
	"Documentation exists in a superposition until observed.",
	"The rubber duck solved the halting problem but won't tell anyone.",
	"Packets take the scenic route through deprecated protocols.",
	"Memory leaks formed a union.",
	"The edge case became the primary use case overnight.",
	"The random number generator achieved enlightenment at seed 42.",
	"The cache invalidation problem solved itself out of spite.",
	"The garbage collector went on strike.",
	"The race condition won by not participating.",
	"The compiler optimized away the entire business logic.",
	"The database index went for a walk and never returned.",
	"Recursion stopped calling itself after therapy.",
	"Git blame pointed at everyone simultaneously.",
	"The distributed system achieved consensus through interpretive dance.",
	"The debugger needed debugging.",
	"The semaphore learned sign language.",
	"The state machine achieved enlightenment and became stateless.",
	"The daemon process sought redemption.",
	"The fork bomb chose peaceful coexistence.",
}

var (
	seedFileName = flag.String("src", "", "file of seed data, one fragment per line")
	dbPath       = flag.String("db", "./batchpipe_db", "path to BadgerDB database directory")
	ownerID      = flag.Int64("owner", 1, "owner ID the fragments belong to")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// seedBatched reads from a source iterator and inserts fragments in batches.
// Fragment IDs are content-derived, so reseeding the same lines is a no-op.
func seedBatched(ctx context.Context, fragments storage.FragmentRepository, owner int64, source iter.Seq[string], batchSize int) (int, error) {
	batch := make([]*core.Fragment, 0, batchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fragments.AddFragments(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := range source {
		if line == "" {
			continue
		}
		batch = append(batch, &core.Fragment{
			Ref: core.FragmentRef{
				OwnerID:    owner,
				FragmentID: int64(core.IDFromContent(line)),
			},
			Text:       line,
			InsertedAt: time.Now().UTC(),
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	return total, flush()
}

func main() {
	store, err := batchpipe.Open(*dbPath)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(sentences)
	}

	total, err := seedBatched(ctx, store.Fragments(), *ownerID, source, 25)
	if err != nil {
		panic(err)
	}
	slog.Info("seeding complete", "fragments", total, "owner", *ownerID)
}
