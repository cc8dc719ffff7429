// Package discovery enumerates the remote namespace and produces the file
// descriptors the pipeline processes.
package discovery

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/aditywn/csv-pickup/internal/pipeline"
	"github.com/aditywn/csv-pickup/internal/remote"
	"github.com/aditywn/csv-pickup/internal/retry"
	"github.com/aditywn/csv-pickup/pkg/logger"
)

// Filter decides which remote files become descriptors. Extension is a
// required suffix match on the filename; Keyword, when non-empty, must be a
// substring of the full remote path.
type Filter struct {
	Extension string
	Keyword   string
}

// Match reports whether a remote path passes the filter.
func (f Filter) Match(remotePath string) bool {
	if !strings.HasSuffix(remotePath, f.Extension) {
		return false
	}
	if f.Keyword != "" && !strings.Contains(remotePath, f.Keyword) {
		return false
	}
	return true
}

// Engine walks the remote tree under a set of roots. Traversal is
// depth-first over an explicit frontier with per-directory lexicographic
// ordering, so two runs over an unchanged namespace yield identical
// descriptor sequences. A visited set and a depth cap bound symlink cycles.
type Engine struct {
	store    remote.Store
	filter   Filter
	retry    retry.Policy
	maxDepth int
}

const defaultMaxDepth = 64

// NewEngine builds a discovery engine. maxDepth <= 0 selects the default
// depth cap.
func NewEngine(store remote.Store, filter Filter, policy retry.Policy, maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Engine{store: store, filter: filter, retry: policy, maxDepth: maxDepth}
}

type frontierNode struct {
	path  string
	depth int
}

// Discover returns every matching file reachable from roots. A directory
// whose listing fails after retries contributes nothing from its subtree,
// logs the failure, and does not disturb sibling subtrees. Only context
// cancellation aborts the walk.
func (e *Engine) Discover(ctx context.Context, roots []string) ([]pipeline.FileDescriptor, error) {
	var files []pipeline.FileDescriptor
	visited := make(map[string]struct{})

	for _, root := range roots {
		// Explicit stack instead of recursion: remote trees can be deep
		// and cyclic.
		stack := []frontierNode{{path: path.Clean(root), depth: 0}}

		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return files, err
			}

			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if _, seen := visited[node.path]; seen {
				continue
			}
			visited[node.path] = struct{}{}

			if node.depth > e.maxDepth {
				logger.Log.Warn().
					Str("dir", node.path).
					Int("max_depth", e.maxDepth).
					Msg("depth cap reached, skipping subtree")
				continue
			}

			var entries []remote.Entry
			err := e.retry.Do(ctx, "list "+node.path, func() error {
				var listErr error
				entries, listErr = e.store.List(ctx, node.path)
				return listErr
			})
			if err != nil {
				if ctx.Err() != nil {
					return files, ctx.Err()
				}
				logger.Log.Error().Str("dir", node.path).Err(err).
					Msg("directory listing failed, skipping subtree")
				continue
			}

			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Name < entries[j].Name
			})

			// Directories are pushed in reverse so the stack pops them in
			// lexicographic order.
			var dirs []frontierNode
			for _, entry := range entries {
				childPath := path.Join(node.path, entry.Name)
				if entry.IsDir {
					dirs = append(dirs, frontierNode{path: childPath, depth: node.depth + 1})
					continue
				}
				if e.filter.Match(childPath) {
					files = append(files, pipeline.FileDescriptor{
						RemotePath: childPath,
						Filename:   entry.Name,
					})
				}
			}
			for i := len(dirs) - 1; i >= 0; i-- {
				stack = append(stack, dirs[i])
			}
		}
	}

	logger.Log.Info().
		Int("count", len(files)).
		Strs("roots", roots).
		Msg("discovery completed")
	return files, nil
}
