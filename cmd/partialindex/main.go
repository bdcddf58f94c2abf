// Command partialindex is the operator tool for the partial node
// index: it can inspect shard files, force a rebuild, verify the index
// against a recorded history, resolve prefixes, and print per-shard
// statistics.
//
// Commands that need the authoritative history (rebuild, verify) read
// it from a text file of full hex nodes, one per line, in revision
// order.
package main

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/hupe1980/partialindex"
	"github.com/hupe1980/partialindex/shard"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: partialindex [flags] <command> [args]

commands:
  inspect <shardkey>...   print the decoded entries of shard files
  rebuild                 rebuild the whole index from --history
  verify                  check the index against --history
  resolve <prefix>...     resolve prefixes and print candidates
  stat                    print per-shard entry/sorted counts

flags:
`)
	flags().PrintDefaults()
}

func flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("partialindex", pflag.ContinueOnError)
	fs.String("root", ".", "repository storage root holding the partialindex directory")
	fs.String("history", "", "file of full hex nodes, one per line, in revision order")
	fs.Bool("no-bisect", false, "disable binary search over sorted shard regions")
	fs.Int("threshold", partialindex.DefaultUnsortedThreshold, "unsorted-entry count that flags the index for rebuild")
	fs.Bool("verbose", false, "log at debug level to stderr")
	return fs
}

func run(args []string) int {
	fs := flags()
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if fs.NArg() == 0 {
		usage()
		return 2
	}

	root, _ := fs.GetString("root")
	historyPath, _ := fs.GetString("history")
	noBisect, _ := fs.GetBool("no-bisect")
	threshold, _ := fs.GetInt("threshold")
	verbose, _ := fs.GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var history partialindex.HistoryStore = emptyHistory{}
	if historyPath != "" {
		h, err := loadHistory(historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		history = h
	}

	ix := partialindex.New(root, history,
		partialindex.WithBisect(!noBisect),
		partialindex.WithUnsortedThreshold(threshold),
		partialindex.WithLogLevel(level),
	)

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "inspect":
		return cmdInspect(ix, rest)
	case "rebuild":
		return cmdRebuild(ix, historyPath)
	case "verify":
		return cmdVerify(ix, historyPath)
	case "resolve":
		return cmdResolve(ix, rest)
	case "stat":
		return cmdStat(ix)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", command)
		usage()
		return 2
	}
}

func cmdInspect(ix *partialindex.Index, keys []string) int {
	if len(keys) == 0 {
		fmt.Fprintln(os.Stderr, "error: please specify a shard key")
		return 2
	}
	status := 0
	for _, key := range keys {
		ok, err := printShard(ix, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: shard %s: %v\n", key, err)
			status = 1
		} else if !ok {
			fmt.Fprintf(os.Stderr, "file %s does not exist\n", key)
		}
	}
	return status
}

func printShard(ix *partialindex.Index, key string) (bool, error) {
	keys, err := ix.ShardKeys()
	if err != nil {
		return false, err
	}
	present := false
	for _, k := range keys {
		if k == key {
			present = true
			break
		}
	}
	if !present {
		return false, nil
	}
	for e, err := range ix.ShardEntries(key) {
		if err != nil {
			return true, err
		}
		fmt.Printf("%s %d\n", e.Node.Hex(), e.Rev)
	}
	return true, nil
}

func cmdRebuild(ix *partialindex.Index, historyPath string) int {
	if historyPath == "" {
		fmt.Fprintln(os.Stderr, "error: rebuild requires --history")
		return 2
	}
	if err := ix.Rebuild(context.Background(), nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: rebuild failed: %v\n", err)
		return 1
	}
	return 0
}

func cmdVerify(ix *partialindex.Index, historyPath string) int {
	if historyPath == "" {
		fmt.Fprintln(os.Stderr, "error: verify requires --history")
		return 2
	}
	found, err := ix.Verify()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: verify failed: %v\n", err)
		return 2
	}
	for _, d := range found {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if len(found) > 0 {
		return 1
	}
	return 0
}

func cmdResolve(ix *partialindex.Index, prefixes []string) int {
	if len(prefixes) == 0 {
		fmt.Fprintln(os.Stderr, "error: please specify a prefix")
		return 2
	}
	status := 0
	for _, prefix := range prefixes {
		lk := ix.Lookup(prefix)
		switch lk.Status {
		case partialindex.LookupInapplicable:
			fmt.Printf("%s: too short or not hex\n", prefix)
		case partialindex.LookupUnavailable:
			fmt.Printf("%s: failed to read partial index\n", prefix)
			status = 1
		case partialindex.LookupFound:
			if len(lk.Candidates) == 0 {
				fmt.Printf("%s: not found\n", prefix)
				continue
			}
			lines := make([]string, 0, len(lk.Candidates))
			for node, rev := range lk.Candidates {
				lines = append(lines, fmt.Sprintf("%s %d", node.Hex(), rev))
			}
			sort.Strings(lines)
			for _, line := range lines {
				fmt.Printf("%s: %s\n", prefix, line)
			}
		}
	}
	return status
}

func cmdStat(ix *partialindex.Index) int {
	if ix.NeedsRebuild() {
		fmt.Println("index will be rebuilt on the next pull")
	}
	stats, err := ix.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	for _, st := range stats {
		fmt.Printf("file: %s, entries: %d, out of them %d sorted\n", st.Key, st.Entries, st.Sorted)
	}
	return 0
}

// fileHistory is a HistoryStore recorded as one full hex node per
// line, line number = revision.
type fileHistory struct {
	nodes []shard.Node
	revs  map[shard.Node]uint32
}

func loadHistory(path string) (*fileHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := &fileHistory{revs: make(map[shard.Node]uint32)}
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		text := scanner.Text()
		if text == "" {
			continue
		}
		node, err := shard.ParseNode(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
		h.revs[node] = uint32(len(h.nodes))
		h.nodes = append(h.nodes, node)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *fileHistory) Revisions() iter.Seq2[uint32, shard.Node] {
	return func(yield func(uint32, shard.Node) bool) {
		for i, node := range h.nodes {
			if !yield(uint32(i), node) {
				return
			}
		}
	}
}

func (h *fileHistory) RevisionOf(node shard.Node) (uint32, error) {
	rev, ok := h.revs[node]
	if !ok {
		return 0, partialindex.ErrNotFound
	}
	return rev, nil
}

// emptyHistory backs commands that never touch history.
type emptyHistory struct{}

func (emptyHistory) Revisions() iter.Seq2[uint32, shard.Node] {
	return func(func(uint32, shard.Node) bool) {}
}

func (emptyHistory) RevisionOf(shard.Node) (uint32, error) {
	return 0, partialindex.ErrNotFound
}
