package storage

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Compressor gzips stored files when it is actually worth it.
type Compressor struct {
	// Level is the gzip compression level (1-9).
	Level int
}

func NewCompressor() *Compressor {
	return &Compressor{Level: DefaultCompressionLevel}
}

// Compress gzips path to path+".gz" and keeps whichever file wins. The
// compressed variant is kept only when it is at least 10% smaller than the
// original; below that bound the decompress-on-read cost is not worth paying,
// so the attempt is discarded and the original stays untouched.
//
// Returns the surviving path plus original and final sizes. Files whose
// extension marks them as already compressed are returned unchanged.
func (c *Compressor) Compress(path string) (string, int64, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("compress %s: %w", path, err)
	}
	originalSize := info.Size()

	if precompressedExts[FileExtension(path)] {
		return path, originalSize, originalSize, nil
	}

	compressedPath := path + CompressedExt
	if err := c.gzipFile(path, compressedPath); err != nil {
		// Never leave a partial .gz behind.
		os.Remove(compressedPath)
		return "", 0, 0, err
	}

	compressedInfo, err := os.Stat(compressedPath)
	if err != nil {
		os.Remove(compressedPath)
		return "", 0, 0, fmt.Errorf("stat compressed file: %w", err)
	}
	compressedSize := compressedInfo.Size()

	if float64(compressedSize) < float64(originalSize)*0.9 {
		if err := os.Remove(path); err != nil {
			os.Remove(compressedPath)
			return "", 0, 0, fmt.Errorf("remove original after compression: %w", err)
		}
		return compressedPath, originalSize, compressedSize, nil
	}

	if err := os.Remove(compressedPath); err != nil {
		return "", 0, 0, fmt.Errorf("discard compression attempt: %w", err)
	}
	return path, originalSize, originalSize, nil
}

func (c *Compressor) gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	gz, err := gzip.NewWriterLevel(out, c.Level)
	if err != nil {
		out.Close()
		return fmt.Errorf("gzip level %d: %w", c.Level, err)
	}

	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return fmt.Errorf("write compressed data: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finish compressed stream: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// Decompress inflates compressedPath into outputPath (default: the input path
// without its ".gz" suffix). Paths that do not end in the compressed extension
// are returned unchanged.
func (c *Compressor) Decompress(compressedPath, outputPath string) (string, error) {
	if !strings.HasSuffix(compressedPath, CompressedExt) {
		return compressedPath, nil
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(compressedPath, CompressedExt)
	}

	in, err := os.Open(compressedPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", compressedPath, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("read gzip header of %s: %w", compressedPath, err)
	}
	defer gz.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outputPath, err)
	}

	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(outputPath)
		return "", fmt.Errorf("write decompressed data: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("close %s: %w", outputPath, err)
	}
	return outputPath, nil
}
