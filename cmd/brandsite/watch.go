package main

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const debounceDuration = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Builds all projects and rebuilds on changes",
	Long: `The watch command performs an initial build of every project, then watches
the content and components directories and rebuilds everything after a
change settles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runner := newRunner()
		var mu sync.Mutex
		rebuild := func() {
			mu.Lock()
			defer mu.Unlock()
			sum, err := runner.Run(ctx)
			if err != nil {
				appLog.Error("build failed", zap.Error(err))
				return
			}
			appLog.Info("build finished", zap.Int("pages", len(sum.Outputs)))
		}
		rebuild()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		for _, root := range []string{appConfig.Paths.ContentDir, appConfig.Paths.ComponentsDir} {
			if err := addTree(watcher, root); err != nil {
				appLog.Warn("not watching", zap.String("path", root), zap.Error(err))
			}
		}

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				appLog.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				if event.Has(fsnotify.Create) && isDir(event.Name) {
					if err := watcher.Add(event.Name); err != nil {
						appLog.Warn("watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceDuration, rebuild)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				appLog.Warn("watcher error", zap.Error(err))
			}
		}
	},
}

// addTree watches root and every directory below it.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
