package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	useRedis := flag.Bool("redis", false, "read the index from redis; <index> is the key prefix")
	query := flag.Bool("query", false, "treat the arguments after <index> as one boolean query (AND, OR, NOT)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: lookup [-config path] [-redis] [-query] <index> <term>...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(apperrors.ExitUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if *query {
		err = runQuery(ctx, cfg, *useRedis, flag.Arg(0), strings.Join(flag.Args()[1:], " "))
	} else {
		err = run(ctx, cfg, *useRedis, flag.Arg(0), flag.Args()[1:])
	}
	stop()
	if err != nil {
		slog.Error("lookup failed", "error", err)
	}
	os.Exit(apperrors.ExitCode(err))
}

func run(ctx context.Context, cfg *config.Config, useRedis bool, location string, terms []string) error {
	idx, err := open(cfg, useRedis, location)
	if err != nil {
		return err
	}
	defer idx.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, term := range terms {
		entry, ok, err := idx.Lookup(ctx, term)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("term not indexed", "term", term)
			continue
		}
		fmt.Fprintln(w, index.FormatLine(entry))
	}
	return nil
}

// runQuery prints one "docID\ttotal\tterm:count ..." line per matching
// document.
func runQuery(ctx context.Context, cfg *config.Config, useRedis bool, location string, raw string) error {
	idx, err := open(cfg, useRedis, location)
	if err != nil {
		return err
	}
	defer idx.Close()

	q := lookup.ParseQuery(raw)
	if len(q.Terms) == 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "query %q has no terms", raw)
	}
	matches, err := lookup.Evaluate(ctx, idx, q)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, m := range matches {
		terms := make([]string, 0, len(m.Frequencies))
		for term, f := range m.Frequencies {
			terms = append(terms, fmt.Sprintf("%s:%d", term, f))
		}
		sort.Strings(terms)
		fmt.Fprintf(w, "%s\t%d\t%s\n", m.DocID, m.Total(), strings.Join(terms, " "))
	}
	return nil
}

func open(cfg *config.Config, useRedis bool, location string) (lookup.Index, error) {
	if !useRedis {
		return lookup.OpenDir(location)
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	return &closingIndex{Index: lookup.NewRedis(client, location), client: client}, nil
}

// closingIndex closes the Redis client along with the index.
type closingIndex struct {
	lookup.Index
	client *pkgredis.Client
}

func (c *closingIndex) Close() error {
	c.Index.Close()
	return c.client.Close()
}
