// cutplan optimizes rectangular cut lists against stock sheets.
//
//	cutplan serve     [-config cutplan.toml] [-addr :8080] [-db cutplan.db] [-dev]
//	cutplan optimize  -in job.json [-pieces parts.csv] [-sheets id=qty,...] [-format text] [-out file]
//	cutplan benchmark -in job.json [-full] [-chart bench.html]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/api"
	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/share"
	"github.com/piwi3910/cutplan/internal/store"
)

const usage = `usage: cutplan <command> [flags]

commands:
  serve      run the HTTP API
  optimize   optimize a job file and write the plan
  benchmark  compare every strategy configuration on a job file

run "cutplan <command> -h" for the flags of a command`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var run func([]string) error
	switch os.Args[1] {
	case "serve":
		run = serve
	case "optimize":
		run = optimize
	case "benchmark":
		run = benchmark
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	err := run(os.Args[2:])
	klog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cutplan %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set for a command with the klog flags registered on it.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	klog.InitFlags(fs)
	return fs
}

func serve(args []string) error {
	fs := newFlagSet("serve")
	cfgPath := fs.String("config", "cutplan.toml", "configuration file")
	addr := fs.String("addr", "", "listen address (overrides the config file)")
	dbPath := fs.String("db", "", "SQLite offcut stock (overrides the config file)")
	memory := fs.Bool("memory", false, "keep the offcut stock in memory")
	devMode := fs.Bool("dev", false, "development mode")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}
	if *memory {
		cfg.Store.DBPath = ""
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	ttl, err := cfg.ShareTTL()
	if err != nil {
		return err
	}
	sweep, err := cfg.SweepInterval()
	if err != nil {
		return err
	}

	var stock api.Stock
	if cfg.Store.DBPath == "" {
		klog.Info("offcut stock kept in memory")
		stock = api.NewMemoryStock()
	} else {
		db, err := store.Open(cfg.Store.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		klog.InfoS("offcut stock opened", "path", cfg.Store.DBPath)
		stock = store.NewOffcutStore(db)
	}

	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shares := share.NewStore(ttl)
	go shares.RunSweeper(ctx, sweep)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(api.NewHandler(stock, shares, cfg.Params)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		klog.InfoS("listening", "addr", cfg.Server.Addr, "dev", cfg.Server.DevMode)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	klog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
