// Command icydb-smoke exercises save/load/delete against an in-memory
// host map, for manual verification without a real backing store.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/session"
	"github.com/dragginzgame/icydb-core/value"
)

func main() {
	op := flag.String("op", "list", "save, delete, or list")
	id := flag.Uint64("id", 0, "note id")
	title := flag.String("title", "", "note title (save)")
	done := flag.Bool("done", false, "note done flag (save)")
	flag.Parse()

	if err := run(*op, *id, *title, *done); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(op string, id uint64, title string, done bool) error {
	registry, err := schema.NewRegistry([]schema.EntityDescriptor{noteEntity})
	if err != nil {
		return err
	}
	codecs := session.NewCodecs()
	codecs.Register("note", noteCodec{})

	store := memkv.New()
	sess, err := session.New(store, registry, codecs)
	if err != nil {
		return err
	}

	switch op {
	case "save":
		n := note{ID: id, Title: title, Done: done}
		if err := sess.Save("note", n, commit.Replace); err != nil {
			return err
		}
		fmt.Printf("saved note %d\n", id)
	case "delete":
		if err := sess.Delete("note", value.NewUint(id)); err != nil {
			return err
		}
		fmt.Printf("deleted note %d\n", id)
	case "list":
		resp, err := sess.Load(session.Query{
			Entity: "note",
			Where:  predicate.True{},
			Order:  []planner.OrderField{{Field: "id"}},
		})
		if err != nil {
			return err
		}
		for _, r := range resp.Rows {
			n := r.(note)
			fmt.Printf("%d\t%q\tdone=%v\n", n.ID, n.Title, n.Done)
		}
	default:
		return fmt.Errorf("unknown -op %q", op)
	}

	fmt.Fprintf(os.Stderr, "stats: commits=%d rows_scanned=%d marker_replays=%d\n",
		sess.Stats().CommitCount, sess.Stats().RowsScanned, sess.Stats().MarkerReplays)
	return nil
}
