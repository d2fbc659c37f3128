package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/applykit/formflow/internal/store/memory"
	sqlitestore "github.com/applykit/formflow/internal/store/sqlite"
	"github.com/applykit/formflow/pkg/builder"
	"github.com/applykit/formflow/pkg/loader"
	"github.com/applykit/formflow/pkg/navigator"
	"github.com/applykit/formflow/pkg/render"
	"github.com/applykit/formflow/pkg/renderers/tui"
	"github.com/applykit/formflow/pkg/submission"
)

func main() {
	schema := flag.String("schema", "", "form schema document (YAML or JSON) to seed")
	dbPath := flag.String("db", "", "SQLite database path (in-memory store if empty)")
	formID := flag.String("form", "", "form to run (defaults to the seeded schema's form)")
	mode := flag.String("mode", "preview", "preview or live")
	endpoint := flag.String("endpoint", "", "submission endpoint URL (required for live mode)")
	htmlOut := flag.String("html", "", "write the first step's HTML rendering to this file and exit")
	flag.Parse()

	ctx := context.Background()

	store, err := openStore(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	if *schema != "" {
		doc, err := loader.ParseFile(*schema)
		if err != nil {
			log.Fatalf("load schema: %v", err)
		}
		seeded, err := loader.Seed(ctx, store, doc)
		if err != nil {
			log.Fatalf("seed schema: %v", err)
		}
		if *formID == "" {
			*formID = seeded
		}
	}
	if *formID == "" {
		log.Fatal("no form: pass -schema to seed one or -form to pick an existing one")
	}

	steps, err := store.GetActiveSteps(ctx, *formID)
	if err != nil {
		log.Fatalf("load form %q: %v", *formID, err)
	}

	session, err := render.NewSession(ctx, *formID)
	if err != nil {
		log.Fatalf("start session: %v", err)
	}

	if *htmlOut != "" {
		if len(steps) == 0 {
			log.Fatalf("form %q has no active steps", *formID)
		}
		tree := session.RenderStep(steps[0], render.ModePreview)
		if err := os.WriteFile(*htmlOut, []byte(render.HTML(tree)), 0o644); err != nil {
			log.Fatalf("write html: %v", err)
		}
		fmt.Printf("Step rendering written to %s\n", *htmlOut)
		return
	}

	var submitter navigator.Submitter
	renderMode := render.ModePreview
	if *mode == "live" {
		if *endpoint == "" {
			log.Fatal("live mode needs -endpoint")
		}
		submitter = submission.NewClient(*endpoint)
		renderMode = render.ModeLive
	}

	nav, err := navigator.New(*formID, steps, session, submitter)
	if err != nil {
		log.Fatalf("start navigator: %v", err)
	}
	flow, err := tui.New(nav, renderMode)
	if err != nil {
		log.Fatalf("start flow: %v", err)
	}
	if err := flow.Run(ctx); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			fmt.Println("Aborted.")
			os.Exit(1)
		}
		log.Fatalf("run form: %v", err)
	}
}

func openStore(path string) (builder.Store, error) {
	if path == "" {
		return memory.New(), nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return sqlitestore.New(db)
}
