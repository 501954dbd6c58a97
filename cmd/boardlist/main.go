// Command boardlist binds a board list to a query stored in a JSON file and
// renames it interactively. Every line typed at the prompt is a rename
// event; renames are saved once typing pauses for the debounce period.
package main

import (
	"context"
	"errors"
	goflag "flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	boardlist "github.com/goliatone/go-boardlist"
	"github.com/goliatone/go-boardlist/pkg/datamapper"
	"github.com/goliatone/go-boardlist/pkg/indicator"
	"github.com/golang/glog"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

type cliFlags struct {
	store      string
	queryID    string
	seedName   string
	configPath string
	debounce   time.Duration
	rule       string
	engine     string
	rollback   bool
}

func main() {
	var opts cliFlags
	flag.StringVar(&opts.store, "store", "boardlist.json", "JSON file holding the queries")
	flag.StringVar(&opts.queryID, "query", "q1", "id of the query to bind")
	flag.StringVar(&opts.seedName, "seed-name", "Untitled board", "name used when the query does not exist yet")
	flag.StringVar(&opts.configPath, "config", "", "optional JSON (with comments) config file")
	flag.DurationVar(&opts.debounce, "debounce", 0, "quiet period before a rename is saved")
	flag.StringVar(&opts.rule, "rule", "", "rename rule, e.g. 'len(name) > 0'")
	flag.StringVar(&opts.engine, "engine", "", "rule engine: expr, cel or js")
	flag.BoolVar(&opts.rollback, "rollback", false, "restore the previous name when saving fails")
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "boardlist: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(opts cliFlags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	listOpts, err := resolveOptions(opts)
	if err != nil {
		return err
	}

	mapper := datamapper.NewFileMapper(opts.store, nil)
	if err := ensureQuery(ctx, mapper, boardlist.Identifier(opts.queryID), opts.seedName); err != nil {
		return err
	}

	indicators := indicator.NewService(indicator.WithObserver(func(target string, visible bool) {
		if visible {
			fmt.Printf("[%s] loading...\n", target)
			return
		}
		fmt.Printf("[%s] ready\n", target)
	}))
	listOpts = append(listOpts,
		boardlist.WithLogger(boardlist.GlogLogger(1)),
		boardlist.WithCommitErrorHandler(func(err *boardlist.CommitError) {
			fmt.Printf("\nrename to %q not saved: %v\n", err.Name, err.Err)
		}),
	)

	list := boardlist.New(mapper, indicators, listOpts...)
	if err := list.Init(ctx, boardlist.FromID(boardlist.Identifier(opts.queryID))); err != nil {
		return err
	}
	defer list.Destroy()

	if _, err := list.Query().Wait(ctx); err != nil {
		return err
	}
	unsubscribe, err := list.Subscribe(func(query boardlist.QueryEntity, err error) {
		if err == nil {
			fmt.Printf("bound to %s %q (columns %s)\n", query.ID, query.Name, strings.Join(query.Columns, ", "))
		}
	})
	if err != nil {
		return err
	}
	defer unsubscribe()
	fmt.Println("type a new name to rename, :s for status, :q to quit")

	return prompt(list)
}

func resolveOptions(opts cliFlags) ([]boardlist.Option, error) {
	var layers []boardlist.ConfigLayer
	if opts.configPath != "" {
		fileCfg, err := boardlist.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, boardlist.NewConfigLayer("file", 10, fileCfg))
	}

	flagCfg := boardlist.Config{
		Debounce:   boardlist.Duration(opts.debounce),
		RenameRule: opts.rule,
		RuleEngine: opts.engine,
	}
	if flag.CommandLine.Changed("rollback") {
		flagCfg.RollbackOnFailure = &opts.rollback
	}
	layers = append(layers, boardlist.NewConfigLayer("flags", 20, flagCfg))

	cfg, err := boardlist.ResolveConfig(layers...)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("[boardlist] debounce=%s indicator_min=%s engine=%s", cfg.Debounce.Std(), cfg.IndicatorMinDuration.Std(), cfg.RuleEngine)
	return cfg.Options()
}

func ensureQuery(ctx context.Context, mapper *datamapper.FileMapper, id boardlist.Identifier, name string) error {
	_, err := mapper.Stream(ctx, boardlist.DefaultProjection(), id)
	if errors.Is(err, datamapper.ErrNotFound) {
		glog.Infof("[boardlist] seeding query %s in %s", id, mapper.Path())
		return mapper.Put(boardlist.QueryEntity{
			ID:      id,
			Name:    name,
			Columns: boardlist.DefaultProjection().Columns,
		})
	}
	return err
}

func prompt(list *boardlist.List) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("name> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		input = strings.TrimSpace(input)
		switch input {
		case ":q":
			return nil
		case ":s":
			snapshot, _ := list.Snapshot()
			fmt.Printf("name=%q revision=%s rename=%s\n", snapshot.Name, snapshot.Revision, list.RenameState())
			continue
		case "":
			continue
		}
		line.AppendHistory(input)
		if err := list.Rename(input); err != nil {
			return err
		}
	}
}
