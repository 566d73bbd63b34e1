package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes response compression.
type BrotliConfig struct {
	Quality   int
	MinLength int // responses shorter than this stay uncompressed
	Skipper   func(c *gin.Context) bool
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// Brotli compresses API responses for clients that accept it. Event
// streams and WebSocket upgrades pass through because buffering breaks
// them; the uploads tree passes through because stored images are
// already compressed.
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if passthrough(c) || (cfg.Skipper != nil && cfg.Skipper(c)) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &brotliWriter{
			ResponseWriter: c.Writer,
			bw:             brotli.NewWriterLevel(c.Writer, cfg.Quality),
			threshold:      cfg.MinLength,
		}
		c.Writer = w
		defer func() {
			if err := w.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// brotliWriter holds writes back until the threshold is crossed, so
// short responses skip the compression header entirely.
type brotliWriter struct {
	gin.ResponseWriter
	bw        *brotli.Writer
	pending   []byte
	threshold int
	started   bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.started {
		_, err := w.bw.Write(data)
		return len(data), err
	}
	w.pending = append(w.pending, data...)
	if len(w.pending) < w.threshold {
		return len(data), nil
	}
	w.begin()
	_, err := w.bw.Write(w.pending)
	w.pending = nil
	return len(data), err
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush supports handlers that stream. Below the threshold the pending
// bytes go out uncompressed; past it the compressor is flushed.
func (w *brotliWriter) Flush() {
	if w.started {
		_ = w.bw.Flush()
	} else if len(w.pending) > 0 {
		_, _ = w.ResponseWriter.Write(w.pending)
		w.pending = nil
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) begin() {
	w.started = true
	w.Header().Set("Content-Encoding", "br")
	w.Header().Del("Content-Length")
}

// finish closes out the response once the handler chain returns.
func (w *brotliWriter) finish() error {
	if w.started {
		return w.bw.Close()
	}
	if len(w.pending) > 0 {
		_, err := w.ResponseWriter.Write(w.pending)
		w.pending = nil
		return err
	}
	return nil
}

func passthrough(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "br") {
			continue
		}
		// A q=0 parameter withdraws the encoding.
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				return false
			}
		}
		return true
	}
	return false
}
