package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sortdb/pkg/common"
	"sortdb/pkg/config"
	"sortdb/pkg/core"
	"sortdb/pkg/keyspec"
	"sortdb/pkg/search"
	"sortdb/pkg/storage/recordfile"
	"strings"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	cmd, args := strings.ToLower(os.Args[1]), os.Args[2:]
	var err error
	switch cmd {
	case "sort":
		err = runSort(args)
	case "search":
		err = runSearch(args, false)
	case "range":
		err = runSearch(args, true)
	case "catalog":
		err = runCatalog(args)
	case "gen":
		err = runGen(args)
	case "convert":
		err = runConvert(args)
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Printf("Unknown command: '%s'. Try 'sortdb help'.\n", cmd)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Usage: sortdb <command> [flags]")
	fmt.Println("  sort    -in F [-out G] -size N -key SPEC [-algo merge|bubble]")
	fmt.Println("  search  -in G -value v1,v2 [-size N -key SPEC]")
	fmt.Println("  range   -in G -value v1,v2 [-size N -key SPEC]")
	fmt.Println("  catalog [-rm G [-delete]]")
	fmt.Println("  gen     -out F -n COUNT [-size N] [-seed S]")
	fmt.Println("  convert -amount A -currency EUR -date DD/MM/YYYY")
	fmt.Println("Every command accepts -config path.")
	fmt.Println("Key spec fields: [-]type@offset, e.g. date@9,-u16le@0,str30@2")
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: configs/sortdb.yaml or sortdb.yaml)")
	return fs, configPath
}

func openEngine(configPath string) (*core.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return core.NewEngine(cfg)
}

func runSort(args []string) error {
	fs, configPath := newFlagSet("sort")
	in := fs.String("in", "", "Unsorted record file")
	out := fs.String("out", "", "Sorted output file (default: generated name in the data dir)")
	size := fs.Int("size", 0, "Record size in bytes")
	key := fs.String("key", "", "Key spec, e.g. i64le@0")
	algo := fs.String("algo", "", "Sort algorithm: merge or bubble (default from config)")
	fs.Parse(args)

	if *in == "" || *size <= 0 || *key == "" {
		return fmt.Errorf("sort needs -in, -size and -key")
	}

	eng, err := openEngine(*configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	entry, err := eng.Sort(core.SortRequest{
		Source:     *in,
		Output:     *out,
		RecordSize: *size,
		KeySpec:    *key,
		Algorithm:  *algo,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Sorted %d records with %s sort in %v\n", entry.RecordCount, entry.Algorithm, entry.Elapsed)
	fmt.Printf("Output: %s\n", entry.Path)
	s := eng.Stats()
	fmt.Printf("Comparisons: %d | Node reads: %d | Node writes: %d | Swaps: %d | Merges: %d | Passes: %d | Warnings: %d\n",
		s.Comparisons, s.NodeReads, s.NodeWrites, s.Swaps, s.Merges, s.Passes, s.Warnings)
	return nil
}

func runSearch(args []string, ranged bool) error {
	name := "search"
	if ranged {
		name = "range"
	}
	fs, configPath := newFlagSet(name)
	in := fs.String("in", "", "Sorted record file")
	value := fs.String("value", "", "Comma separated key values, one per key field")
	size := fs.Int("size", 0, "Record size (skips the catalog when given with -key)")
	key := fs.String("key", "", "Key spec (skips the catalog when given with -size)")
	fs.Parse(args)

	if *in == "" || *value == "" {
		return fmt.Errorf("%s needs -in and -value", name)
	}
	values := strings.Split(*value, ",")

	start := time.Now()
	var (
		rng   search.Range
		found bool
		err   error
	)
	if *size > 0 && *key != "" {
		rng, found, err = searchDirect(*in, values, *size, *key, ranged)
	} else {
		eng, oerr := openEngine(*configPath)
		if oerr != nil {
			return oerr
		}
		defer eng.Close()
		if ranged {
			rng, found, err = eng.SearchRange(*in, values)
		} else {
			rng.Start, found, err = eng.Search(*in, values)
		}
	}
	if err != nil {
		return err
	}

	duration := time.Since(start)
	switch {
	case !found:
		fmt.Printf("(nil) (%v)\n", duration)
	case ranged:
		fmt.Printf("%d records at [%d, %d] (%v)\n", rng.Count, rng.Start, rng.End, duration)
	default:
		fmt.Printf("Found at index %d (%v)\n", rng.Start, duration)
	}
	return nil
}

func searchDirect(path string, values []string, size int, key string, ranged bool) (search.Range, bool, error) {
	spec, err := keyspec.Parse(key)
	if err != nil {
		return search.Range{}, false, err
	}
	probe, err := spec.Encode(values, size)
	if err != nil {
		return search.Range{}, false, err
	}
	if ranged {
		return search.SearchRange(path, probe, size, spec.Compare)
	}
	idx, found, err := search.SearchPoint(path, probe, size, spec.Compare)
	return search.Range{Count: 1, Start: idx, End: idx}, found, err
}

func runCatalog(args []string) error {
	fs, configPath := newFlagSet("catalog")
	rm := fs.String("rm", "", "Forget a sorted file")
	del := fs.Bool("delete", false, "With -rm, also delete the file")
	fs.Parse(args)

	eng, err := openEngine(*configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	if *rm != "" {
		if err := eng.Forget(*rm, *del); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	}

	entries, err := eng.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("(empty catalog)")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s\n  source=%s size=%d key=%s algo=%s records=%d comparisons=%d elapsed=%v created=%s\n",
			e.Path, e.Source, e.RecordSize, e.KeySpec, e.Algorithm, e.RecordCount, e.Comparisons,
			e.Elapsed, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runGen(args []string) error {
	fs, _ := newFlagSet("gen")
	out := fs.String("out", "", "Output record file")
	n := fs.Int64("n", 1000, "Number of records")
	size := fs.Int("size", 8, "Record size in bytes (>= 8); the key is an i64le at offset 0")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Random seed")
	fs.Parse(args)

	if *out == "" || *size < 8 || *n < 0 {
		return fmt.Errorf("gen needs -out, -n >= 0 and -size >= 8")
	}

	w, err := recordfile.Create(*out, *size)
	if err != nil {
		return err
	}
	r := rand.New(rand.NewSource(*seed))
	rec := make([]byte, *size)
	for i := int64(0); i < *n; i++ {
		r.Read(rec)
		binary.LittleEndian.PutUint64(rec, uint64(r.Int63n(1_000_000)))
		if err := w.Append(rec); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d records of %d bytes to %s (sort key: i64le@0)\n", *n, *size, *out)
	return nil
}

func runConvert(args []string) error {
	fs, configPath := newFlagSet("convert")
	amount := fs.Float64("amount", 0, "Amount in the source currency")
	code := fs.String("currency", "", "Currency code, e.g. EUR")
	dateStr := fs.String("date", "", "Transaction date DD/MM/YYYY")
	fs.Parse(args)

	if *code == "" || *dateStr == "" {
		return fmt.Errorf("convert needs -currency and -date")
	}
	date, err := common.ParseDate(*dateStr)
	if err != nil {
		return err
	}

	eng, err := openEngine(*configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	usd, err := eng.ConvertToUSD(*amount, strings.ToUpper(*code), date)
	if err != nil {
		return err
	}
	fmt.Printf("%.3f %s on %s = %.3f USD\n", *amount, strings.ToUpper(*code), date, usd)
	return nil
}
