package storage

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"vikoba/backend/common"
)

// PreviewArtifacts holds the derived images produced for a stored file. Paths
// are empty unless generation succeeded.
type PreviewArtifacts struct {
	ThumbnailPath string
	PreviewPath   string
}

func (a PreviewArtifacts) HasPreview() bool {
	return a.ThumbnailPath != "" || a.PreviewPath != ""
}

// ImageProvider renders bounded thumbnails from raster images.
type ImageProvider interface {
	Available() bool
	// Thumbnail decodes src, fits it inside width x height preserving aspect
	// ratio, and writes a JPEG to dst.
	Thumbnail(src, dst string, width, height int) error
}

// PDFProvider rasterizes one page of a PDF.
type PDFProvider interface {
	Available() bool
	RenderPage(src string, page int, dpi float64) (image.Image, error)
}

// VideoProvider captures a single frame of a video as a JPEG still.
type VideoProvider interface {
	Available() bool
	// CaptureFrame writes a still taken at min(offsetSeconds, duration*0.10)
	// to dst. Capping at 10% skips black intro frames while still respecting
	// short clips.
	CaptureFrame(src, dst string, offsetSeconds float64) error
}

// imagingProvider implements ImageProvider on disintegration/imaging.
type imagingProvider struct{}

func (imagingProvider) Available() bool { return true }

func (imagingProvider) Thumbnail(src, dst string, width, height int) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("open image %s: %w", src, err)
	}
	img = flattenOntoWhite(img)
	img = imaging.Fit(img, width, height, imaging.Lanczos)
	return saveJPEG(img, dst)
}

// flattenOntoWhite composites translucent images onto a white background so
// the JPEG output does not come out black where the source was transparent.
func flattenOntoWhite(img image.Image) image.Image {
	if imageIsOpaque(img) {
		return img
	}
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

func imageIsOpaque(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	return false
}

// saveJPEG always encodes JPEG regardless of the destination extension, since
// thumbnails keep the stored filename of their source.
func saveJPEG(img image.Image, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("encode jpeg %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// fitzProvider implements PDFProvider on go-fitz (mupdf).
type fitzProvider struct{}

func (fitzProvider) Available() bool { return true }

func (fitzProvider) RenderPage(src string, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.New(src)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", src, err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("render pdf page %d of %s: %w", page, src, err)
	}
	return img, nil
}

// ffmpegProvider implements VideoProvider by shelling out to ffmpeg/ffprobe.
type ffmpegProvider struct{}

func (ffmpegProvider) Available() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return false
	}
	return true
}

func (p ffmpegProvider) CaptureFrame(src, dst string, offsetSeconds float64) error {
	captureAt := offsetSeconds
	if duration, err := p.probeDuration(src); err == nil && duration > 0 {
		if capped := duration * 0.10; capped < captureAt {
			captureAt = capped
		}
	}

	err := ffmpeg.Input(src, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", captureAt)}).
		Output(dst, ffmpeg.KwArgs{"vframes": 1, "format": "image2", "vcodec": "mjpeg"}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("capture frame of %s: %w", src, err)
	}
	return nil
}

func (ffmpegProvider) probeDuration(src string) (float64, error) {
	raw, err := ffmpeg.Probe(src)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", src, err)
	}
	var probed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &probed); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}
	return strconv.ParseFloat(probed.Format.Duration, 64)
}

// Generator runs the per-media-type preview pipelines. Every method follows
// the same contract: it returns the artifact path on success and "" on any
// failure, logging a warning instead of raising. A missing preview is a
// degraded-but-valid state, never a fatal one.
type Generator struct {
	paths *Paths
	image ImageProvider
	pdf   PDFProvider
	video VideoProvider
}

// NewGenerator wires the default providers.
func NewGenerator(paths *Paths) *Generator {
	return &Generator{
		paths: paths,
		image: imagingProvider{},
		pdf:   fitzProvider{},
		video: ffmpegProvider{},
	}
}

// NewGeneratorWithProviders lets callers disable or substitute capabilities.
// A nil provider means the capability is unavailable.
func NewGeneratorWithProviders(paths *Paths, img ImageProvider, pdf PDFProvider, video VideoProvider) *Generator {
	return &Generator{paths: paths, image: img, pdf: pdf, video: video}
}

// Generate dispatches on the file category. path must point at uncompressed
// bytes; callers decompress to a scratch copy first when needed.
func (g *Generator) Generate(path string, category FileCategory, ext string) PreviewArtifacts {
	var artifacts PreviewArtifacts
	switch {
	case category == CategoryImages:
		artifacts.ThumbnailPath = g.ImageThumbnail(path)
	case ext == "pdf":
		artifacts.PreviewPath = g.PDFPreview(path, 0)
		if artifacts.PreviewPath != "" {
			artifacts.ThumbnailPath = g.ImageThumbnail(artifacts.PreviewPath)
		}
	case category == CategoryVideos:
		artifacts.ThumbnailPath = g.VideoThumbnail(path, 1.0)
	}
	return artifacts
}

// ImageThumbnail produces thumbnails/thumb_{basename}, bounded 300x300.
func (g *Generator) ImageThumbnail(path string) string {
	if g.image == nil || !g.image.Available() {
		common.SysLog("image provider unavailable, skipping thumbnail for " + path)
		return ""
	}
	dst := g.paths.ThumbnailPath(filepath.Base(path))
	if err := g.image.Thumbnail(path, dst, ThumbnailWidth, ThumbnailHeight); err != nil {
		common.SysError(fmt.Sprintf("failed to generate thumbnail for %s: %s", path, err.Error()))
		return ""
	}
	return dst
}

// PDFPreview rasterizes the given page at 150 DPI and produces
// previews/preview_{stem}.jpg, bounded 800x600.
func (g *Generator) PDFPreview(path string, page int) string {
	if g.pdf == nil || !g.pdf.Available() {
		common.SysLog("pdf renderer unavailable, skipping preview for " + path)
		return ""
	}

	img, err := g.pdf.RenderPage(path, page, PDFPreviewDPI)
	if err != nil {
		common.SysError(fmt.Sprintf("failed to render pdf preview for %s: %s", path, err.Error()))
		return ""
	}

	img = imaging.Fit(img, PreviewWidth, PreviewHeight, imaging.Lanczos)
	dst := g.paths.PreviewPath(filepath.Base(path))
	if err := saveJPEG(img, dst); err != nil {
		common.SysError(fmt.Sprintf("failed to save pdf preview for %s: %s", path, err.Error()))
		return ""
	}
	return dst
}

// VideoThumbnail captures one frame and runs it through the image pipeline.
// The intermediate frame lives in temp/ and is removed on every exit path.
func (g *Generator) VideoThumbnail(path string, offsetSeconds float64) string {
	if g.video == nil || !g.video.Available() {
		common.SysLog("video decoder unavailable, skipping thumbnail for " + path)
		return ""
	}

	frame := filepath.Join(g.paths.TempDir(), stem(filepath.Base(path))+"_frame.jpg")
	if err := g.video.CaptureFrame(path, frame, offsetSeconds); err != nil {
		common.SysError(fmt.Sprintf("failed to capture video frame for %s: %s", path, err.Error()))
		return ""
	}
	defer os.Remove(frame)

	if g.image == nil || !g.image.Available() {
		common.SysLog("image provider unavailable, skipping thumbnail for " + path)
		return ""
	}
	dst := g.paths.ThumbnailPath(stem(filepath.Base(path)) + ".jpg")
	if err := g.image.Thumbnail(frame, dst, ThumbnailWidth, ThumbnailHeight); err != nil {
		common.SysError(fmt.Sprintf("failed to generate video thumbnail for %s: %s", path, err.Error()))
		return ""
	}
	return dst
}
