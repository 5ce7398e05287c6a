// Command gtsinspect replays a JSON-lines file of GTS tuples through a
// ChunkSet and reports ring statistics, in the spirit of the teacher's own
// cmd/chunks-inspect tool for serialized Loki chunks.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	lru "github.com/hashicorp/golang-lru"
	jsoniter "github.com/json-iterator/go"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/giwi/gtsstore/pkg/chunkenc"
	"github.com/giwi/gtsstore/pkg/gtsconfig"
	"github.com/giwi/gtsstore/pkg/gtsring"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	app = kingpin.New("gtsinspect", "Replay a tuple file through a ChunkSet and report ring statistics.")

	file            = app.Arg("file", `JSON-lines file of {"ts","location","elevation","value"} tuples.`).Required().String()
	now             = app.Flag("now", "Wall-clock timestamp Store runs against; defaults to the max ts seen in the file.").Int64()
	chunkCount      = app.Flag("chunk-count", "Ring slot count.").Default("4").Uint32()
	chunkLength     = app.Flag("chunk-length", "Ring slot length.").Default("1000").Int64()
	encoding        = app.Flag("encoding", "Codec encoding: none, snappy, lz4, gzip.").Default("snappy").String()
	groupByLocation = app.Flag("group-by-location", "Additionally report per-location-hash tuple counts.").Bool()

	// historySize bounds an in-process cache of recent runs' tuple counts
	// keyed by file path, letting --watch report the count delta between
	// consecutive polls; each poll still re-replays the whole file.
	historySize = app.Flag("history-size", "Bounded cache of counts seen across --watch polls.").Default("16").Int()

	watch         = app.Flag("watch", "Re-replay the file on an interval and report the count delta each poll, until interrupted.").Bool()
	watchInterval = app.Flag("watch-interval", "Polling interval for --watch.").Default("2s").Duration()
)

var history *lru.Cache

type tupleJSON struct {
	Timestamp int64   `json:"ts"`
	Location  uint64  `json:"location"`
	Elevation int64   `json:"elevation"`
	Value     float64 `json:"value"`
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("gtsinspect: %v", err))
		os.Exit(1)
	}
}

func run() error {
	var err error
	history, err = lru.New(*historySize)
	if err != nil {
		return err
	}

	if !*watch {
		return inspectOnce()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	ticker := time.NewTicker(*watchInterval)
	defer ticker.Stop()

	for {
		if err := inspectOnce(); err != nil {
			return err
		}
		select {
		case <-sigCh:
			return nil
		case <-ticker.C:
		}
	}
}

// inspectOnce replays *file once and prints its stats, recording the tuple
// count in history and printing the delta against the last poll of the
// same path if one is cached.
func inspectOnce() error {
	cfg := gtsconfig.Config{ChunkCount: *chunkCount, ChunkLength: *chunkLength, Encoding: *encoding}
	enc, err := chunkenc.ParseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}

	cs, err := cfg.NewChunkSet(nil, nil)
	if err != nil {
		return err
	}

	locationCounts, wallClock, err := replay(*file, cs, enc)
	if err != nil {
		return err
	}

	count := cs.Count()
	printReport(cs, count, wallClock, locationCounts)

	if prev, ok := history.Get(*file); ok {
		delta := int64(count) - int64(prev.(uint64))
		fmt.Printf("  delta since last poll: %+d\n", delta)
	}
	history.Add(*file, count)
	return nil
}

// replay parses the JSON-lines tuple file at path, stores every in-window
// tuple into cs, and returns the per-location-hash counts (when requested)
// plus the wall clock Store ran against.
func replay(path string, cs *gtsring.ChunkSet, enc chunkenc.Encoding) (map[uint64]int, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	in := chunkenc.New(0, enc)
	locationCounts := map[uint64]int{}
	maxTs := int64(0)
	seen := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tj tupleJSON
		if err := jsonAPI.Unmarshal(line, &tj); err != nil {
			return nil, 0, fmt.Errorf("parsing tuple line: %w", err)
		}
		if !seen || tj.Timestamp > maxTs {
			maxTs = tj.Timestamp
			seen = true
		}
		if err := in.Append(chunkenc.Tuple{
			Timestamp: tj.Timestamp,
			Location:  chunkenc.Location(tj.Location),
			Elevation: chunkenc.Elevation(tj.Elevation),
			Value:     chunkenc.Value{Kind: chunkenc.KindDouble, Double: tj.Value},
		}); err != nil {
			return nil, 0, err
		}
		if *groupByLocation {
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], tj.Location)
			locationCounts[xxhash.Sum64(buf[:])]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	wallClock := *now
	if wallClock == 0 {
		wallClock = maxTs
	}
	cs.SetClock(func() int64 { return wallClock })

	if err := cs.Store(in); err != nil {
		return nil, 0, err
	}
	return locationCounts, wallClock, nil
}

func printReport(cs *gtsring.ChunkSet, count uint64, wallClock int64, locationCounts map[uint64]int) {
	fmt.Println(color.CyanString("gtsinspect: %s", *file))
	fmt.Printf("  populated slots : %d\n", cs.PopulatedSlots())
	fmt.Printf("  tuple count     : %d\n", count)
	fmt.Printf("  buffer size     : %s (%s uncompressed)\n", humanize.Bytes(cs.Size()), humanize.Bytes(cs.UncompressedSize()))
	fmt.Printf("  wall clock      : %d\n", wallClock)
	if mint, maxt, ok := cs.TimeRange(); ok {
		fmt.Printf("  data time range : [%d, %d]\n", mint, maxt)
	}

	if *groupByLocation {
		fmt.Println("  by location hash:")
		for h, n := range locationCounts {
			fmt.Printf("    %016x: %d\n", h, n)
		}
	}
}
