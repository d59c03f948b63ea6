package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leijurv/jxl_container_go/jxl"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/term"
)

type testResult struct {
	decodeOK  bool
	truncated bool
	frames    int
	pixels    uint64
	code      jxl.ExitCode
	errMsg    string
}

type options struct {
	params jxl.DecompressParams
	pngDir string
	scale  int
	log    *logrus.Logger
}

func main() {
	dirPath := flag.String("dir", ".", "Directory containing .jxl files")
	limit := flag.Int("limit", 0, "Limit number of files to test (0 = no limit)")
	workers := flag.Int("workers", 16, "Number of parallel workers")
	verbose := flag.Bool("v", false, "Verbose output")
	allowPartial := flag.Bool("allow-partial", false, "Accept truncated files")
	preview := flag.String("preview", "default", "Preview handling: on, off or default")
	pngDir := flag.String("png", "", "Write the first frame of every decoded file as PNG into this directory")
	scale := flag.Int("scale", 1, "Downscale PNG output by this factor")
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	previewMode, err := jxl.ParseOverride(*preview)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *workers < 1 {
		fmt.Fprintf(os.Stderr, "Error: -workers must be at least 1\n")
		os.Exit(2)
	}
	if *scale < 1 {
		fmt.Fprintf(os.Stderr, "Error: -scale must be at least 1\n")
		os.Exit(2)
	}

	opts := options{
		params: jxl.DefaultDecompressParams(),
		pngDir: *pngDir,
		scale:  *scale,
		log:    log,
	}
	opts.params.AllowPartialFiles = *allowPartial
	opts.params.Preview = previewMode
	opts.params.Logger = log

	if opts.pngDir != "" {
		if err := os.MkdirAll(opts.pngDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
			os.Exit(1)
		}
	}

	entries, err := os.ReadDir(*dirPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading directory: %v\n", err)
		os.Exit(1)
	}

	var jxlFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jxl") {
			jxlFiles = append(jxlFiles, e.Name())
		}
	}

	if *limit > 0 && len(jxlFiles) > *limit {
		jxlFiles = jxlFiles[:*limit]
	}

	fmt.Printf("Testing %d files with %d workers...\n", len(jxlFiles), *workers)

	var decodePass, decodeFail, truncated int64
	var totalFrames, totalPixels int64
	var mu sync.Mutex
	var failedFiles []string
	failuresByCode := make(map[jxl.ExitCode]int)
	var processed int64

	jobs := make(chan string, len(jxlFiles))
	var wg sync.WaitGroup

	// The progress line only makes sense on an interactive terminal.
	done := make(chan struct{})
	var statusWg sync.WaitGroup
	if term.IsTerminal(int(os.Stdout.Fd())) {
		statusWg.Add(1)
		go func() {
			defer statusWg.Done()
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					n := atomic.LoadInt64(&processed)
					dp := atomic.LoadInt64(&decodePass)
					df := atomic.LoadInt64(&decodeFail)
					tr := atomic.LoadInt64(&truncated)
					fmt.Printf("Progress: %d/%d processed (%d passed, %d failed, %d truncated)\n",
						n, len(jxlFiles), dp, df, tr)
				case <-done:
					return
				}
			}
		}()
	}

	// Each file decodes its sections on a small pool of its own; the file
	// level workers already keep every CPU busy.
	pool := jxl.NewThreadPool(max(1, runtime.NumCPU() / *workers))

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filename := range jobs {
				result := testFile(*dirPath, filename, &opts, pool)
				atomic.AddInt64(&processed, 1)

				if !result.decodeOK {
					atomic.AddInt64(&decodeFail, 1)
					mu.Lock()
					failedFiles = append(failedFiles, result.errMsg)
					failuresByCode[result.code]++
					mu.Unlock()
					continue
				}
				atomic.AddInt64(&decodePass, 1)
				atomic.AddInt64(&totalFrames, int64(result.frames))
				atomic.AddInt64(&totalPixels, int64(result.pixels))
				if result.truncated {
					atomic.AddInt64(&truncated, 1)
				}
			}
		}()
	}

	for _, f := range jxlFiles {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	close(done)
	statusWg.Wait()

	fmt.Println()
	fmt.Printf("Results: %d passed, %d failed, %d truncated\n", decodePass, decodeFail, truncated)
	fmt.Printf("Decoded %d frames, %d pixels\n", totalFrames, totalPixels)

	if len(failuresByCode) > 0 {
		codes := make([]jxl.ExitCode, 0, len(failuresByCode))
		for c := range failuresByCode {
			codes = append(codes, c)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		fmt.Println("\nFailures by code:")
		for _, c := range codes {
			fmt.Printf("  %-20s %d\n", c, failuresByCode[c])
		}
	}

	if len(failedFiles) > 0 && len(failedFiles) <= 20 {
		sort.Strings(failedFiles)
		fmt.Println("\nFailed files:")
		for _, f := range failedFiles {
			fmt.Println("  " + f)
		}
	}

	if decodeFail > 0 {
		os.Exit(1)
	}
}

func testFile(dirPath, filename string, opts *options, pool jxl.ThreadPool) testResult {
	result := testResult{}

	data, err := os.ReadFile(filepath.Join(dirPath, filename))
	if err != nil {
		result.errMsg = fmt.Sprintf("%s: read error: %v", filename, err)
		result.code = jxl.ExitCodeShortRead
		return result
	}

	params := opts.params
	params.Logger = opts.log.WithField("file", filename)

	io := jxl.NewCodecInOut()
	status, err := jxl.DecodeContainer(&params, data, io, pool)
	if err != nil {
		result.errMsg = fmt.Sprintf("%s: decode error: %v", filename, err)
		result.code = jxl.CodeOf(err)
		return result
	}

	result.decodeOK = true
	result.truncated = status == jxl.StatusTruncated
	result.frames = len(io.Frames)
	result.pixels = io.DecPixels

	opts.log.WithFields(logrus.Fields{
		"file":   filename,
		"status": status,
		"frames": result.frames,
		"pixels": result.pixels,
	}).Debug("decode pass")

	if opts.pngDir != "" {
		if err := writePNG(opts, filename, io.Main()); err != nil {
			opts.log.WithError(err).WithField("file", filename).Warn("failed to write PNG")
		}
	}
	return result
}

// writePNG writes the frame next to the other outputs, scaled down by opts.scale
func writePNG(opts *options, filename string, ib *jxl.ImageBundle) error {
	if ib == nil {
		return fmt.Errorf("no frames")
	}
	img, err := ib.ToImage()
	if err != nil {
		return err
	}
	if opts.scale > 1 {
		b := img.Bounds()
		w := max(1, b.Dx()/opts.scale)
		h := max(1, b.Dy()/opts.scale)
		dst := image.NewNRGBA64(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	out := filepath.Join(opts.pngDir, strings.TrimSuffix(filename, ".jxl")+".png")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
