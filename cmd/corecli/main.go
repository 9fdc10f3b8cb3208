// corecli is an interactive inspector over a single heap file, driving
// the buffer pool and table heap directly. There is no SQL layer in
// this module's scope, so unlike a SQL client this tool's commands map
// straight onto heap/buffer-pool operations.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/lttran/corestore/internal/buffer"
	"github.com/lttran/corestore/internal/config"
	"github.com/lttran/corestore/internal/disk"
	"github.com/lttran/corestore/internal/heap"
	"github.com/lttran/corestore/internal/page"
)

func helpText() string {
	return `commands:
  insert <bytes>          insert a tuple (raw text bytes)
  get <pageID> <slot>     fetch one tuple by RecordId
  delete <pageID> <slot>  mark a tuple deleted
  scan                    iterate every tuple in the heap
  dump <pageID>           print a page's header/slot/tuple layout
  stats                   print the heap's first page id
  flush                   flush every page of the heap to disk
  quit | exit             quit
`
}

func defaultDataDir() string {
	dir := filepath.Join(os.TempDir(), "corestore-"+uuid.NewString())
	return dir
}

func main() {
	var (
		confPath = flag.String("config", "", "YAML config path (optional)")
		dataDir  = flag.String("data-dir", "", "directory for the demo data file (default: fresh temp dir)")
	)
	flag.Parse()

	cfg := defaultConfig()
	if *confPath != "" {
		loaded, err := config.Load(*confPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	dir := *dataDir
	if dir == "" {
		dir = defaultDataDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir %s: %v\n", dir, err)
		os.Exit(1)
	}
	dataPath := filepath.Join(dir, cfg.DataPath)

	dm, err := disk.Open(dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", dataPath, err)
		os.Exit(1)
	}
	defer func() { _ = dm.Close() }()

	pool := buffer.NewPool(cfg.PoolCapacity, cfg.ReplacerK, dm)
	tbl, err := heap.NewTable(pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new table: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("corestore data file: %s\n", dataPath)
	fmt.Println("type \\help for help")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "corestore> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "\\q", "quit", "exit":
			return
		case "\\help", "help":
			fmt.Print(helpText())
		case "insert":
			runInsert(tbl, args, line)
		case "get":
			runGet(tbl, args)
		case "delete":
			runDelete(tbl, args)
		case "scan":
			runScan(tbl)
		case "dump":
			runDump(pool, args)
		case "stats":
			fmt.Printf("firstPageID=%d\n", tbl.FirstPageID())
		case "flush":
			if err := tbl.Flush(); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		default:
			fmt.Printf("unknown command: %s (try \\help)\n", cmd)
		}
	}
}

func defaultConfig() config.Config {
	return config.Config{
		DataPath:     "corestore.db",
		PoolCapacity: 16,
		ReplacerK:    2,
	}
}

func runInsert(tbl *heap.Table, args []string, raw string) {
	payload := strings.TrimSpace(strings.TrimPrefix(raw, "insert"))
	if payload == "" {
		fmt.Println("usage: insert <bytes>")
		return
	}
	rid, err := tbl.Insert([]byte(payload), page.TupleMetadata{})
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("inserted at (%d, %d)\n", rid.PageID, rid.Slot)
}

func parseRID(args []string) (page.RecordID, error) {
	if len(args) != 2 {
		return page.RecordID{}, fmt.Errorf("usage: <pageID> <slot>")
	}
	pid, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return page.RecordID{}, err
	}
	slot, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return page.RecordID{}, err
	}
	return page.RecordID{PageID: page.PageID(pid), Slot: uint16(slot)}, nil
}

func runGet(tbl *heap.Table, args []string) {
	rid, err := parseRID(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	meta, data, err := tbl.GetTuple(rid)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("deleted=%v data=%q\n", meta.Deleted, data)
}

func runDelete(tbl *heap.Table, args []string) {
	rid, err := parseRID(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := tbl.DeleteTuple(rid); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func runScan(tbl *heap.Table) {
	it, err := tbl.Iterator()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer func() { _ = it.Close() }()

	count := 0
	for {
		rec, err := it.Next()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if rec == nil {
			break
		}
		fmt.Printf("(%d,%d) deleted=%v data=%q\n", rec.RID.PageID, rec.RID.Slot, rec.Meta.Deleted, rec.Data)
		count++
	}
	fmt.Printf("(%d tuples)\n", count)
}

func runDump(pool *buffer.Pool, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: dump <pageID>")
		return
	}
	pid, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Println(err)
		return
	}
	g, err := pool.FetchPage(page.PageID(pid))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer func() { _ = g.Unpin(false) }()
	g.Page().Dump(os.Stdout)
}
