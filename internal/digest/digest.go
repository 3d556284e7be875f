// Package digest computes the content digest that addresses an object.
//
// The file is streamed in fixed windows, strictly in order, through a single
// running hash. Progress is reported after every window and the goroutine
// yields before reading the next one, so a long scan never monopolizes the
// scheduler. Cancellation is observed at every window boundary; a cancelled
// computation never returns a partial digest.
package digest

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"runtime"
	"sort"

	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/filex"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

type Algorithm string

const (
	MD5     Algorithm = "md5"
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
	BLAKE3  Algorithm = "blake3"
)

var algorithms = map[Algorithm]func() hash.Hash{
	MD5:    md5.New,
	SHA256: sha256.New,
	BLAKE2b: func() hash.Hash {
		h, _ := blake2b.New256(nil) // only fails for oversized keys
		return h
	},
	BLAKE3: func() hash.Hash { return blake3.New() },
}

// Algorithms lists the supported algorithm names in stable order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for a := range algorithms {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// Digest is the lowercase hex encoding of the content hash.
type Digest string

func (d Digest) String() string { return string(d) }

// Key builds the canonical object key "{digest}.{extension}".
func (d Digest) Key(extension string) string {
	return string(d) + "." + extension
}

// ProgressFunc receives the processed share of the file in percent (0..100).
// Values are non-decreasing and the last call on success is exactly 100.
type ProgressFunc func(percent float64)

type Engine struct {
	window  int64
	newHash func() hash.Hash
	algo    Algorithm
}

func NewEngine(algo Algorithm, window int64) (*Engine, error) {
	if algo == "" {
		algo = MD5
	}
	fn, ok := algorithms[algo]
	if !ok {
		return nil, fmt.Errorf("%w: unknown digest algorithm %q (supported: %v)", common.ErrValidation, algo, Algorithms())
	}
	if window <= 0 {
		window = common.DefaultWindowSize
	}
	return &Engine{window: window, newHash: fn, algo: algo}, nil
}

func (e *Engine) Algorithm() Algorithm { return e.algo }
func (e *Engine) Window() int64        { return e.window }

// Compute hashes f window by window. It returns common.ErrCancelled (joined
// with the context error) when ctx is done, and common.ErrReadFailed when any
// window cannot be read in full.
func (e *Engine) Compute(ctx context.Context, f filex.File, progress ProgressFunc) (Digest, error) {
	h := e.newHash()
	size := f.Size()

	windows := size / e.window
	if size%e.window != 0 {
		windows++
	}

	for i := int64(0); i < windows; i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrCancelled, err)
		}

		off := i * e.window
		n := min(e.window, size-off)

		buf, err := filex.ReadWindow(f, off, n)
		if err != nil {
			return "", fmt.Errorf("%w: window %d: %w", common.ErrReadFailed, i+1, err)
		}
		h.Write(buf)

		if progress != nil {
			progress(float64(i+1) / float64(windows) * 100)
		}

		runtime.Gosched()
	}

	// a cancel that raced the last window still wins
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrCancelled, err)
	}

	if windows == 0 && progress != nil {
		progress(100)
	}

	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}
