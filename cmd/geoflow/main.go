// Command geoflow is a small maintenance tool around the library: validate
// spatial files, convert between formats, and inspect provenance ledgers.
//
// Usage:
//
//	geoflow validate [-fix method] <file>
//	geoflow convert [-crs code] <input> <output>
//	geoflow provenance [-html out.html] <ledger.json|file.gpkg>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/banshee-data/geoflow"
	"github.com/banshee-data/geoflow/internal/provenance"
	"github.com/banshee-data/geoflow/internal/report"
)

func main() {
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "validate":
		err = runValidate(args[1:])
	case "convert":
		err = runConvert(args[1:])
	case "provenance":
		err = runProvenance(args[1:])
	default:
		log.Printf("unknown command %q", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("geoflow %s: %v", args[0], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  geoflow validate [-fix make_valid|buffer] <file>")
	fmt.Fprintln(os.Stderr, "  geoflow convert [-crs code] <input> <output>")
	fmt.Fprintln(os.Stderr, "  geoflow provenance [-html out.html] <ledger.json|file.gpkg>")
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fix := fs.String("fix", "", "repair invalid geometries in place using the given method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := fs.Arg(0)

	ds, err := geoflow.Load(path)
	if err != nil {
		return err
	}

	v := geoflow.NewGeometryValidator()
	rep := v.ValidationReport(ds)
	fmt.Printf("%s: %d features, %d invalid (%.1f%%), %d empty, %d null\n",
		path, rep.TotalFeatures, rep.InvalidCount, rep.InvalidPercentage, rep.EmptyCount, rep.NullCount)
	for issue, count := range rep.Issues {
		fmt.Printf("  %dx %s\n", count, issue)
	}

	if *fix == "" || rep.InvalidCount == 0 {
		return nil
	}

	fixed, err := v.FixInvalid(ds, *fix)
	if err != nil {
		return err
	}
	if _, err := geoflow.Save(fixed, path, nil); err != nil {
		return err
	}
	fmt.Printf("repaired %d geometries with %s\n", rep.InvalidCount, *fix)
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	crsCode := fs.String("crs", "", "reproject to the given CRS before writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("expected input and output file arguments")
	}

	ds, err := geoflow.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if *crsCode != "" {
		ds, err = geoflow.Reproject(ds, *crsCode)
		if err != nil {
			return err
		}
	}

	out, err := geoflow.Save(ds, fs.Arg(1), nil)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d features, %s)\n", out, ds.Len(), ds.CRS)
	return nil
}

func runProvenance(args []string) error {
	fs := flag.NewFlagSet("provenance", flag.ExitOnError)
	htmlOut := fs.String("html", "", "also render an HTML timeline to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one ledger or geopackage argument")
	}
	path := fs.Arg(0)

	trackers, err := loadTrackers(path)
	if err != nil {
		return err
	}
	if len(trackers) == 0 {
		return fmt.Errorf("%s carries no provenance", path)
	}

	for _, tracker := range trackers {
		if err := report.WriteSummary(tracker, os.Stdout); err != nil {
			return err
		}
	}

	if *htmlOut != "" {
		f, err := os.Create(*htmlOut)
		if err != nil {
			return err
		}
		defer f.Close()
		return report.RenderTimeline(trackers[len(trackers)-1], f)
	}
	return nil
}

func loadTrackers(path string) ([]*provenance.Tracker, error) {
	if strings.HasSuffix(strings.ToLower(path), ".gpkg") {
		return geoflow.ReadEmbeddedProvenance(path)
	}
	tracker, err := geoflow.LoadTracker(path)
	if err != nil {
		return nil, err
	}
	return []*provenance.Tracker{tracker}, nil
}
