package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/ChizhovVadim/CounterZero/internal/journal"
	"github.com/ChizhovVadim/CounterZero/internal/model"
)

func runGenerations(args []string, w io.Writer, logger *log.Logger) error {
	var flags = flag.NewFlagSet("generations", flag.ContinueOnError)
	var modelDir = flags.String("models", "./models", "Directory with the baseline model")
	var nextDir = flags.String("next", "", "Directory with model generations (default <models>/next_generation)")
	var err = flags.Parse(args)
	if err != nil {
		return err
	}
	if *nextDir == "" {
		*nextDir = filepath.Join(*modelDir, "next_generation")
	}
	var store = model.NewStore(*nextDir, *modelDir, logger)
	generations, err := store.Generations()
	if err != nil {
		return err
	}
	for _, g := range generations {
		fmt.Fprintln(w, g.Name)
	}
	return nil
}

func runHistory(args []string, w io.Writer) error {
	var flags = flag.NewFlagSet("history", flag.ContinueOnError)
	var journalPath = flags.String("journal", "", "Path to the sqlite training journal")
	var limit = flags.Int("n", 20, "Number of generations to show")
	var err = flags.Parse(args)
	if err != nil {
		return err
	}
	if *journalPath == "" {
		return fmt.Errorf("journal path required")
	}
	j, err := journal.Open(*journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.Generations(*limit)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(w, "%v\t%v\tsteps %v\texamples %v\tloss %.4f\tvalidation %.4f\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Name,
			r.TotalSteps, r.Examples, r.Loss, r.ValidationLoss)
	}
	files, examples, err := j.LoadedFiles()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "loaded files %v examples %v\n", files, examples)
	return nil
}
