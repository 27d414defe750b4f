package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch files...",
		Short: "Rebuild and print the model whenever an input changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), args, out, errOut)
		},
	}
}

// watch prints the model once, then again after every write to one of
// files, until ctx is done. Directories are watched rather than the files
// so that editors replacing a file by rename are still seen.
func watch(ctx context.Context, files []string, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		return err
	}
	defer watcher.Close()

	inputs := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range files {
		inputs[filepath.Clean(f)] = true
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(errOut, "ctypemap: watching %s: %v\n", dir, err)
			return err
		}
		dirs[dir] = true
	}

	rebuild := func() {
		m, err := buildModel(ctx, files, errOut)
		if err != nil {
			return
		}
		if err := writeModel(m, "text", out); err != nil {
			fmt.Fprintf(errOut, "ctypemap: %v\n", err)
		}
		fmt.Fprintln(out, "---")
	}
	rebuild()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if changed(ev, inputs) {
				if verbose {
					fmt.Fprintf(errOut, "ctypemap: %s changed\n", ev.Name)
				}
				rebuild()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "ctypemap: watch: %v\n", err)
		}
	}
}

// changed reports whether ev rewrote one of the inputs
func changed(ev fsnotify.Event, inputs map[string]bool) bool {
	if !inputs[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Op&fsnotify.Write == fsnotify.Write || ev.Op&fsnotify.Create == fsnotify.Create
}
