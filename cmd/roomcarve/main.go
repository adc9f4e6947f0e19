package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
	"github.com/mapwright/roomcarve/internal/overlay"
	"github.com/mapwright/roomcarve/internal/roi"
	"github.com/mapwright/roomcarve/internal/selection"
	"github.com/mapwright/roomcarve/internal/tools"
	"github.com/mapwright/roomcarve/internal/wand"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// config is populated from the environment; flags override per run.
type config struct {
	LogLevel      string `env:"ROOMCARVE_LOG_LEVEL"`
	CacheCapacity int    `env:"ROOMCARVE_CACHE_CAPACITY" envDefault:"32"`
	PyramidDepth  int    `env:"ROOMCARVE_PYRAMID_DEPTH" envDefault:"5"`
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("roomcarve %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	// Configure logging to stderr (stdout stays clean for piped output)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var (
		inPath    = flag.String("in", "", "source map image (PNG or JPEG)")
		outPath   = flag.String("out", "mask.png", "output mask file")
		svgPath   = flag.String("svg", "", "optional SVG overlay output")
		seedArg   = flag.String("seed", "0.5,0.5", "wand seed as normalized x,y")
		tolerance = flag.Float64("tolerance", 18, "wand color tolerance (Lab units)")
		feather   = flag.Float64("feather", 0, "feather amount in normalized units")
		useEdges  = flag.Bool("edges", true, "run edge-aware selection")
		dataURL   = flag.Bool("dataurl", false, "print the mask as a data URL instead of writing -out")
	)
	flag.Parse()
	if *inPath == "" {
		usage()
		os.Exit(2)
	}

	seed, err := parseSeed(*seedArg)
	if err != nil {
		log.Fatalf("Bad -seed: %v", err)
	}

	img, err := loadImage(*inPath)
	if err != nil {
		log.Fatalf("Load error: %v", err)
	}
	b := img.Bounds()
	if cfg.LogLevel == "debug" {
		log.Printf("roomcarve v%s (built %s, commit %s): %s %dx%d",
			Version, BuildTime, GitCommit, *inPath, b.Dx(), b.Dy())
	}

	// The cache is oversized for a one-shot run, but it keeps the CLI on
	// the same preprocessing path the interactive session uses.
	cache := roi.NewCache(cfg.CacheCapacity, cfg.PyramidDepth)
	var art *roi.Artifacts
	if *useEdges {
		key := roi.ContentKey(img, b)
		art = cache.Get(key, img)
		if cfg.LogLevel == "debug" {
			log.Printf("ROI artifacts under key %s", key)
		}
	}

	store := selection.NewStore()
	tn := store.Snapshot().Tunables
	tn.WandTolerance = *tolerance
	tn.FeatherAmount = *feather
	store.SetTunables(tn)

	provider := &tools.LocalProvider{}
	seedPx := image.Pt(
		int(seed.X*float64(b.Dx())),
		int(seed.Y*float64(b.Dy())),
	)
	opts := wand.Options{
		Tolerance:    *tolerance,
		Connectivity: wand.Connect4,
		Contiguous:   true,
		AntiAlias:    true,
		MinArea:      8,
		Bounds:       geometry.Bounds{MaxX: 1, MaxY: 1},
	}
	em := artifactEdges(art)
	res, err := provider.MagicWandSelect(context.Background(), []image.Image{img}, seedPx, opts, em, nil)
	if err != nil {
		log.Fatalf("Selection error: %v", err)
	}
	sel := res.Mask
	if *feather > 0 {
		provider.FeatherMask(sel, *feather)
	}
	store.Commit(sel)
	log.Printf("Selected %d pixels (%.1f%% coverage)",
		res.AcceptedCount, 100*sel.CoverageRatio())

	if *dataURL {
		fmt.Println(mask.EncodeDataURL(sel))
	} else {
		if err := os.WriteFile(*outPath, mask.Encode(sel), 0o644); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		log.Printf("Wrote mask to %s", *outPath)
	}

	if *svgPath != "" {
		f, err := os.Create(*svgPath)
		if err != nil {
			log.Fatalf("SVG error: %v", err)
		}
		doc := overlay.Doc{
			Width:     b.Dx(),
			Height:    b.Dy(),
			Committed: store.Snapshot().Mask,
			ROI:       b,
		}
		if err := overlay.WriteSVG(f, doc); err != nil {
			f.Close()
			log.Fatalf("SVG error: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("SVG error: %v", err)
		}
		log.Printf("Wrote overlay to %s", *svgPath)
	}
}

func usage() {
	fmt.Println("roomcarve - region selection and mask export for map images")
	fmt.Println()
	fmt.Println("Usage: roomcarve -in map.png [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -in FILE          source map image (PNG or JPEG)")
	fmt.Println("  -out FILE         output mask file (default mask.png)")
	fmt.Println("  -svg FILE         also write an SVG overlay")
	fmt.Println("  -seed X,Y         wand seed, normalized coordinates (default 0.5,0.5)")
	fmt.Println("  -tolerance N      wand color tolerance in Lab units (default 18)")
	fmt.Println("  -feather N        feather amount in normalized units")
	fmt.Println("  -edges            edge-aware selection (default true)")
	fmt.Println("  -dataurl          print the mask as a data URL")
	fmt.Println("  --version, -v     print version information")
	fmt.Println("  --help, -h        print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  ROOMCARVE_LOG_LEVEL=debug      enable debug logging")
	fmt.Println("  ROOMCARVE_CACHE_CAPACITY=N     preprocessing cache entries (default 32)")
	fmt.Println("  ROOMCARVE_PYRAMID_DEPTH=N      cost pyramid levels (default 5)")
}

func artifactEdges(a *roi.Artifacts) *edges.EdgeMap {
	if a == nil {
		return nil
	}
	return a.Edges
}

func parseSeed(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("parsing x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("parsing y: %w", err)
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return geometry.Point{}, fmt.Errorf("seed %q outside [0,1]", s)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
