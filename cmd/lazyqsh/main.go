package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/kartikbazzad/lazyq"
	"github.com/kartikbazzad/lazyq/cmd/lazyqsh/parser"
	"github.com/kartikbazzad/lazyq/cmd/lazyqsh/shell"
)

const prompt = "lazyq> "

func main() {
	dbPath := flag.String("db", "", "SQLite database path (empty = in-memory)")
	demo := flag.Bool("demo", false, "Seed a demo auction table")
	debug := flag.Bool("debug", false, "Log translated SQL and timings")
	flag.Parse()

	var opts []lazyq.Option
	if *debug {
		opts = append(opts, lazyq.WithDebugLogging())
	}

	db, err := lazyq.Open(*dbPath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if *demo {
		if err := seedDemo(ctx, db); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed demo data: %v\n", err)
			os.Exit(1)
		}
	}

	sh := shell.NewShell(db)
	defer sh.Close()

	fmt.Printf("lazyq shell\n")
	if *dbPath == "" {
		fmt.Printf("Using in-memory database. Type '.help' for commands.\n\n")
	} else {
		fmt.Printf("Using %s. Type '.help' for commands.\n\n", *dbPath)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted. Exiting...")
		sh.Close()
		os.Exit(0)
	}()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".lazyqsh_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		cmd, err := parser.Parse(input)
		if err != nil {
			fmt.Println("ERROR")
			fmt.Println(err.Error())
			fmt.Println()
			continue
		}

		result := sh.Execute(ctx, cmd)
		if result.IsExit() {
			return
		}
		result.Print(os.Stdout)
		fmt.Println()
	}
}

func seedDemo(ctx context.Context, db *lazyq.DB) error {
	err := db.CreateTable(ctx, "auction",
		lazyq.Column{Name: "id", Type: lazyq.Numeric},
		lazyq.Column{Name: "bidderID", Type: lazyq.Numeric},
		lazyq.Column{Name: "bid", Type: lazyq.Numeric},
		lazyq.Column{Name: "item", Type: lazyq.Text},
	)
	if err != nil {
		return err
	}
	return db.InsertRows(ctx, "auction", [][]interface{}{
		{1, 1, 10, "vase"},
		{2, 4, 20, "vase"},
		{3, 2, 35, "clock"},
		{4, 1, 40, "clock"},
		{5, 2, 15, "vase"},
		{6, 3, 25, "lamp"},
	})
}
