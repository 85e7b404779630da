package source

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	log "github.com/sirupsen/logrus"
)

// DefaultPDFDPI is the rasterization density used when none is given.
const DefaultPDFDPI = 150

// PDFSource rasterizes the pages of a PDF file through PDFium and serves
// them as PNG-encoded bytes. Page dimensions are known up front from the
// PDF page geometry, so the document model never needs placeholders.
type PDFSource struct {
	pdfBytes  []byte
	pool      pdfium.Pool
	pageCount int
	dpi       int
}

// NewPDFSource reads a PDF file and prepares a PDFium worker pool for
// rendering its pages.
func NewPDFSource(filePath string, dpi int) (*PDFSource, error) {
	if dpi <= 0 {
		dpi = DefaultPDFDPI
	}

	pdfBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  2,
		MaxTotal: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		instance.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to open PDF document: %w", err)
	}

	pageCountResp, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	pageCount := pageCountResp.PageCount

	instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
	instance.Close()

	return &PDFSource{
		pdfBytes:  pdfBytes,
		pool:      pool,
		pageCount: pageCount,
		dpi:       dpi,
	}, nil
}

func (s *PDFSource) PageCount() int {
	return s.pageCount
}

// Fetch rasterizes one page at the configured DPI and returns it
// PNG-encoded.
func (s *PDFSource) Fetch(page int) ([]byte, error) {
	if page < 1 || page > s.pageCount {
		return nil, fmt.Errorf("page number %d out of range (1-%d)", page, s.pageCount)
	}

	instance, err := s.pool.GetInstance(time.Second * 30)
	if err != nil {
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &s.pdfBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF document: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    page - 1,
			},
		},
		DPI: s.dpi,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rendered.Result.Image); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

// KnownDimensions reports each page's pixel size at the configured DPI,
// computed from the PDF page geometry without rasterizing anything.
func (s *PDFSource) KnownDimensions() []Dimensions {
	instance, err := s.pool.GetInstance(time.Second * 30)
	if err != nil {
		log.Debugf("source: dimension query unavailable: %v", err)
		return nil
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &s.pdfBytes,
	})
	if err != nil {
		log.Debugf("source: dimension query unavailable: %v", err)
		return nil
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	// PDF geometry is in points, 72 per inch.
	scale := float64(s.dpi) / 72.0

	dims := make([]Dimensions, 0, s.pageCount)
	for i := 0; i < s.pageCount; i++ {
		size, err := instance.GetPageSize(&requests.GetPageSize{
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    i,
				},
			},
		})
		if err != nil {
			log.Debugf("source: page %d size unavailable: %v", i+1, err)
			continue
		}
		dims = append(dims, Dimensions{
			Page:   i + 1,
			Width:  int(math.Round(size.Width * scale)),
			Height: int(math.Round(size.Height * scale)),
		})
	}
	return dims
}

func (s *PDFSource) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
