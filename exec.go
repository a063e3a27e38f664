package facedeform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/esimov/facedeform/utils"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// SupportedExtensions lists the file types picked up when walking a directory.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".webp", ".tif", ".tiff"}

// Ops describes a command line run.
type Ops struct {
	// Src is a local file, a directory, an URL or PipeName for stdin.
	Src      string
	PipeName string
	Workers  int
	// FetchTimeout bounds the download when Src is an URL.
	FetchTimeout time.Duration
	// Store receives the artifacts. When nil, the deformed image is encoded as PNG to Stdout.
	Store  ArtifactStore
	Stdout io.Writer
	Stderr io.Writer
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total     int
	Succeeded int
	NoFace    int
	Failed    int
}

// result holds the outcome of processing a single source.
type result struct {
	path      string
	requestID string
	outcome   Outcome
	artifacts Artifacts
	err       error
}

// Execute runs the pipeline over the source described by op.
// Directories are walked recursively and their files are processed concurrently.
func (p *Pipeline) Execute(ctx context.Context, op *Ops) (Summary, error) {
	if op.Stdout == nil {
		op.Stdout = os.Stdout
	}
	if op.Stderr == nil {
		op.Stderr = os.Stderr
	}
	now := time.Now()

	var (
		sum Summary
		err error
	)
	if !utils.IsValidUrl(utils.NormalizeURL(op.Src)) && op.Src != op.PipeName {
		fi, statErr := os.Stat(op.Src)
		if statErr != nil {
			return sum, fmt.Errorf("failed to load the source image: %w", statErr)
		}
		if fi.IsDir() {
			if op.Store == nil {
				return sum, errors.New("a destination directory is required when the source is a directory")
			}
			sum, err = p.executeDir(ctx, op)
			op.printElapsed(now)
			return sum, err
		}
	}

	res := p.executeOne(ctx, op)
	sum.add(res)
	op.printOpStatus(res)
	if res.err != nil {
		return sum, res.err
	}
	op.printElapsed(now)
	return sum, nil
}

// executeOne processes a single file, URL or stdin pipe behind a progress indicator.
func (p *Pipeline) executeOne(ctx context.Context, op *Ops) result {
	requestID, data, err := op.readSource(ctx)
	if err != nil {
		return result{path: op.Src, err: err}
	}

	spinner := utils.NewSpinner(op.Stderr, utils.StatusLine("deforming the face...", utils.DefaultMessage), 80*time.Millisecond, true)
	spinner.Start()
	res := p.process(ctx, op, op.Src, requestID, data)
	spinner.Stop()

	return res
}

// executeDir fans the files of the source directory out to a bounded pool of workers.
func (p *Pipeline) executeDir(ctx context.Context, op *Ops) (Summary, error) {
	var (
		sum Summary
		wg  sync.WaitGroup
	)

	// Limit the concurrently running workers to maxWorkers.
	workers := op.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = runtime.NumCPU()
	}

	ch := make(chan result)
	done := make(chan struct{})
	defer close(done)

	paths, errc := walkDir(done, op.Src, SupportedExtensions)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			p.consumer(ctx, op, ch, done, paths)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(utils.DecorateText(utils.AppTag, utils.StatusMessage)),
		progressbar.OptionSetWriter(op.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var failed []result
	for res := range ch {
		sum.add(res)
		if res.err != nil {
			failed = append(failed, res)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for _, res := range failed {
		op.printOpStatus(res)
	}
	fmt.Fprintf(op.Stderr, "\n%d processed: %s, %d without face, %s\n",
		sum.Total,
		utils.DecorateText(fmt.Sprintf("%d deformed", sum.Succeeded), utils.SuccessMessage),
		sum.NoFace,
		utils.DecorateText(fmt.Sprintf("%d failed", sum.Failed), utils.ErrorMessage),
	)

	if err := <-errc; err != nil {
		return sum, err
	}
	if sum.Failed > 0 {
		return sum, fmt.Errorf("%d of %d images failed", sum.Failed, sum.Total)
	}
	return sum, nil
}

// consumer reads the path names from the paths channel and runs the pipeline over each file.
func (p *Pipeline) consumer(
	ctx context.Context,
	op *Ops,
	res chan<- result,
	done <-chan struct{},
	paths <-chan string,
) {
	for src := range paths {
		var r result
		if err := ctx.Err(); err != nil {
			r = result{path: src, err: err}
		} else if data, err := os.ReadFile(src); err != nil {
			r = result{path: src, err: fmt.Errorf("unable to open the source file: %w", err)}
		} else {
			r = p.process(ctx, op, src, utils.RequestIDFromPath(src), data)
		}

		select {
		case <-done:
			return
		case res <- r:
		}
	}
}

// process runs the pipeline and hands the outcome over to the store or the stdout pipe.
func (p *Pipeline) process(ctx context.Context, op *Ops, path, requestID string, data []byte) result {
	out := p.Run(requestID, data)
	res := result{path: path, requestID: requestID, outcome: out}

	if op.Store != nil {
		res.artifacts, res.err = Persist(ctx, op.Store, requestID, out, p.format)
	} else if s, ok := out.(Success); ok {
		if term.IsTerminal(int(os.Stdout.Fd())) && op.Stdout == os.Stdout {
			res.err = errors.New("`-` should be used with a pipe for stdout")
		} else {
			res.err = Encode(op.Stdout, s.Deformed, p.format.Ext())
		}
	}

	if res.err == nil {
		if err, ok := out.(error); ok {
			res.err = err
		}
	}
	return res
}

// readSource loads the bytes of a single source and derives its request identifier.
func (op *Ops) readSource(ctx context.Context) (string, []byte, error) {
	switch {
	case op.Src == op.PipeName:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return "", nil, errors.New("`-` should be used with a pipe for stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", nil, fmt.Errorf("unable to read stdin: %w", err)
		}
		return utils.NewRequestID(), data, nil
	case utils.IsValidUrl(utils.NormalizeURL(op.Src)):
		if op.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, op.FetchTimeout)
			defer cancel()
		}
		data, _, err := utils.DownloadImage(ctx, nil, op.Src)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load the source image: %w", err)
		}
		return utils.NewRequestID(), data, nil
	default:
		data, err := os.ReadFile(op.Src)
		if err != nil {
			return "", nil, fmt.Errorf("unable to open the source file: %w", err)
		}
		return utils.RequestIDFromPath(op.Src), data, nil
	}
}

// printOpStatus displays the relevant information about a processed source.
func (op *Ops) printOpStatus(res result) {
	if res.err != nil {
		fmt.Fprintf(op.Stderr, "%s\n\t%s\n",
			utils.StatusLine(fmt.Sprintf("processing %s failed ✘", filepath.Base(res.path)), utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("Reason: %v", res.err), utils.DefaultMessage),
		)
		return
	}

	switch res.outcome.(type) {
	case NoFaceDetected:
		fmt.Fprintln(op.Stderr, utils.StatusLine("no face detected in "+filepath.Base(res.path), utils.DefaultMessage))
	case Success:
		fmt.Fprintln(op.Stderr, utils.StatusLine("the face has been deformed ✔", utils.SuccessMessage))
		if len(res.artifacts) > 0 {
			locs := make([]string, 0, len(res.artifacts))
			for _, loc := range res.artifacts {
				locs = append(locs, filepath.Base(loc))
			}
			sort.Strings(locs)
			fmt.Fprintf(op.Stderr, "The artifacts have been saved as: %s\n",
				utils.DecorateText(strings.Join(locs, ", "), utils.SuccessMessage),
			)
		}
	}
}

func (op *Ops) printElapsed(start time.Time) {
	fmt.Fprintf(op.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(start)), utils.SuccessMessage))
}

func (s *Summary) add(res result) {
	s.Total++
	switch {
	case res.err != nil:
		s.Failed++
	case res.outcome.Status() == StatusNoFace:
		s.NoFace++
	default:
		s.Succeeded++
	}
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported file to a new channel.
// It finishes in case the done channel is getting closed.
func walkDir(
	done <-chan struct{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !f.Mode().IsRegular() {
				return nil
			}
			if !utils.Contains(srcExts, strings.ToLower(filepath.Ext(f.Name()))) {
				return nil
			}

			select {
			case <-done:
				return errors.New("directory walk cancelled")
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}
