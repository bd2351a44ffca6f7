package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/pathprogress/internal/app"
	"github.com/yungbote/pathprogress/internal/clients/redis"
	"github.com/yungbote/pathprogress/internal/clients/storageapi"
	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress/cache"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

// maxParallelOpens bounds concurrent path loads for "open" with several refs.
const maxParallelOpens = 4

// pathAPI is the storage service surface the CLI needs beyond the session.
type pathAPI interface {
	progress.CurriculumService
	CreatePath(ctx context.Context, title string, doc *curriculum.Document) (*curriculum.Path, error)
}

type cli struct {
	log     *logger.Logger
	out     io.Writer
	asJSON  bool
	api     pathAPI
	session *progress.Session
	closers []func() error

	mu sync.Mutex
}

func newCLI(ctx context.Context, cfg app.Config, log *logger.Logger, out io.Writer, asJSON bool) (*cli, error) {
	c := &cli{log: log, out: out, asJSON: asJSON}

	store, err := c.openCache(ctx, cfg, log)
	if err != nil {
		c.closeAll()
		return nil, err
	}
	client, err := storageapi.New(storageapi.Config{
		BaseURL:    cfg.Storage.URL,
		Timeout:    cfg.Storage.Timeout,
		MaxRetries: cfg.Storage.MaxRetries,
	}, log)
	if err != nil {
		c.closeAll()
		return nil, err
	}
	policy, err := progress.ParsePolicy(cfg.Cache.ReconcilePolicy)
	if err != nil {
		c.closeAll()
		return nil, err
	}

	c.api = client
	c.session = progress.NewSession(progress.SessionDeps{
		Log:        log,
		Paths:      client,
		Store:      store,
		Reconciler: progress.NewReconciler(store, client, policy, log),
		Builder:    progress.NewBuilder(store, client, log),
		Writer:     client,
	})
	return c, nil
}

func (c *cli) openCache(ctx context.Context, cfg app.Config, log *logger.Logger) (*progress.Store, error) {
	var backing progress.Cache
	switch cfg.Cache.Driver {
	case "memory":
		backing = cache.NewMemory()
	case "sqlite":
		sc, err := cache.OpenSQLite(cfg.Cache.Path, log)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, sc.Close)
		backing = sc
	case "redis":
		rdb, err := redis.NewClient(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, log)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rdb.Close)
		backing = cache.NewRedis(goredis.UniversalClient(rdb), cfg.Cache.RedisPrefix, log)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	store := progress.NewStore(backing, log)
	if err := store.Open(ctx); err != nil {
		// An unreadable cache starts the run empty; the server copy refills it.
		log.Warn("progress cache unreadable, starting empty", "driver", cfg.Cache.Driver, "error", err)
	}
	return store, nil
}

func (c *cli) close(ctx context.Context) error {
	var err error
	if c.session != nil {
		err = c.session.Close(ctx)
	}
	return errors.Join(err, c.closeAll())
}

func (c *cli) closeAll() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "paths":
		return c.paths(ctx)
	case "open":
		if len(rest) == 0 {
			return errors.New("open: want at least one path id or slug")
		}
		return c.open(ctx, rest)
	case "set":
		if len(rest) != 3 {
			return errors.New("set: want <id|slug> <item-id> <status>")
		}
		return c.set(ctx, rest[0], rest[1], rest[2])
	case "import":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("import: want <file> [title]")
		}
		title := ""
		if len(rest) == 2 {
			title = rest[1]
		}
		return c.importFile(ctx, rest[0], title)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) paths(ctx context.Context) error {
	rows, err := c.api.ListPaths(ctx)
	if err != nil {
		return err
	}
	return c.print(pathList(rows))
}

// open loads every ref concurrently, then prints the views in argument order.
func (c *cli) open(ctx context.Context, refs []string) error {
	views := make([]progress.PathView, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelOpens)
	for i, ref := range refs {
		g.Go(func() error {
			v, err := c.session.Open(gctx, ref)
			if err != nil {
				return fmt.Errorf("open %q: %w", ref, err)
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, v := range views {
		if err := c.print(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) set(ctx context.Context, ref, itemID, rawStatus string) error {
	status, err := types.ParseStatus(rawStatus)
	if err != nil {
		return err
	}
	v, err := c.session.SetItemStatus(ctx, ref, itemID, status)
	if err != nil {
		return err
	}
	return c.print(v)
}

func (c *cli) importFile(ctx context.Context, file, title string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	doc, err := curriculum.ParseDocument(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if title == "" {
		title = doc.Title
	}
	p, err := c.api.CreatePath(ctx, title, doc)
	if err != nil {
		return err
	}
	return c.print(pathList([]*curriculum.Path{p}))
}

func (c *cli) print(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asJSON {
		return writeJSON(c.out, v)
	}
	switch t := v.(type) {
	case progress.PathView:
		return renderView(c.out, t)
	case pathList:
		return renderPaths(c.out, t)
	default:
		return writeJSON(c.out, v)
	}
}
