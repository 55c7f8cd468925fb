// Command reporter checks the Naver Blog search ranking of target posts
// for a batch of keywords and prints a result table.
//
// The batch is a CSV file where each row is a keyword followed by one or
// more target post URLs:
//
//	성수 카페,https://blog.naver.com/foodie/223001,https://blog.naver.com/foodie/223005
//	망원 맛집,https://blog.naver.com/hungry/223002
//
// Configuration comes from flags, with environment variables (optionally
// loaded from a .env file) as fallback.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/engine"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/query"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store/memory"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store/postgres"
	redisstore "github.com/yeonuk-hwang/viral-marketing-reporter-v2/store/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reporter:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; variables may be set in the environment.
	_ = godotenv.Load()

	var (
		input        = flag.String("input", "", "CSV batch file: keyword,target-url[,target-url...]")
		storeKind    = flag.String("store", envOr("REPORTER_STORE", "memory"), "store backend: memory, postgres or redis")
		databaseURL  = flag.String("database-url", os.Getenv("REPORTER_DATABASE_URL"), "Postgres connection string")
		redisAddr    = flag.String("redis-addr", envOr("REPORTER_REDIS_ADDR", "localhost:6379"), "Redis address")
		outputDir    = flag.String("out", envOr("REPORTER_OUTPUT_DIR", "screenshots"), "directory for capture artifacts")
		captureAll   = flag.Bool("capture-all", false, "capture the result page even when no target is found")
		scheduleExpr = flag.String("schedule", "", "cron expression; re-run the batch on this schedule until interrupted")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		return errors.New("missing -input")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	specs, err := readBatch(*input, *captureAll)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, *storeKind, *databaseURL, *redisAddr, logger)
	if err != nil {
		return err
	}

	cfg := reporter.DefaultConfig()
	cfg.OutputDir = *outputDir

	eng, err := engine.Build(st, engine.WithConfig(cfg), engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if stopErr := eng.Stop(stopCtx); stopErr != nil {
			logger.Warn("shutdown", slog.Any("error", stopErr))
		}
	}()

	if *scheduleExpr != "" {
		return runScheduled(ctx, eng, logger, *scheduleExpr, specs)
	}
	return runOnce(ctx, eng, specs)
}

// runOnce submits one job, waits for the cascade to settle and prints the
// result table.
func runOnce(ctx context.Context, eng *engine.Engine, specs []domain.TaskSpec) error {
	jobID := id.NewJobID()
	if err := eng.Submit(ctx, jobID, specs); err != nil {
		return err
	}
	res, err := eng.Result(ctx, jobID)
	if err != nil {
		return err
	}
	printResult(os.Stdout, res)
	return nil
}

// runScheduled registers the batch as a recurring run and blocks until the
// process is interrupted.
func runScheduled(ctx context.Context, eng *engine.Engine, logger *slog.Logger, expr string, specs []domain.TaskSpec) error {
	if err := eng.AddSchedule("batch", expr, specs); err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	logger.Info("scheduler running", slog.String("schedule", expr), slog.Int("tasks", len(specs)))
	<-ctx.Done()
	return nil
}

// readBatch parses the CSV batch file into task specs. Blank lines and
// lines starting with '#' are skipped.
func readBatch(path string, captureAll bool) ([]domain.TaskSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	r.TrimLeadingSpace = true

	var specs []domain.TaskSpec
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read batch: %w", err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("batch line %d: keyword %q has no target URLs", len(specs)+1, record[0])
		}
		urls := make([]string, 0, len(record)-1)
		for _, u := range record[1:] {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		specs = append(specs, domain.TaskSpec{
			Index:      len(specs),
			Keyword:    strings.TrimSpace(record[0]),
			URLs:       urls,
			Platform:   domain.NaverBlog,
			CaptureAll: captureAll,
		})
	}
	if len(specs) == 0 {
		return nil, errors.New("batch is empty")
	}
	return specs, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openStore(ctx context.Context, kind, databaseURL, redisAddr string, logger *slog.Logger) (store.Store, error) {
	switch kind {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if databaseURL == "" {
			return nil, errors.New("postgres store needs -database-url or REPORTER_DATABASE_URL")
		}
		st, err := postgres.New(ctx, databaseURL, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		return redisstore.New(client, redisstore.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown store %q (memory, postgres or redis)", kind)
	}
}

func printResult(w io.Writer, res query.JobResult) {
	fmt.Fprintf(w, "job %s  status=%s  created=%s\n\n",
		res.JobID, res.Status, res.CreatedAt)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKEYWORD\tSTATUS\tFOUND\tCAPTURE")
	for _, t := range res.Tasks {
		detail := strings.Join(t.FoundURLs, " ")
		if t.Status == string(domain.TaskError) {
			detail = t.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			t.Index+1, t.Keyword, t.Status, detail, t.ScreenshotPath)
	}
	tw.Flush()
}
