package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

var errEngineClosed = errors.New("pdf engine closed")

// pdfEngine decodes PDFs on a fixed pool of worker goroutines so a large
// document never runs on the request goroutine.
type pdfEngine struct {
	jobs chan pdfJob
	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

type pdfJob struct {
	data   []byte
	result chan pdfResult
}

type pdfResult struct {
	text  string
	pages int
	err   error
}

func startPDFEngine(workers int) (*pdfEngine, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("invalid worker count %d", workers)
	}

	e := &pdfEngine{
		jobs: make(chan pdfJob),
		quit: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.work()
	}
	return e, nil
}

func (e *pdfEngine) work() {
	defer e.wg.Done()
	for {
		select {
		case job := <-e.jobs:
			text, pages, err := decodePDF(job.data)
			job.result <- pdfResult{text: text, pages: pages, err: err}
		case <-e.quit:
			return
		}
	}
}

// Extract waits for a free worker and returns the decoded text. Only the
// wait honors ctx; a decode that has started always runs to completion.
func (e *pdfEngine) Extract(ctx context.Context, data []byte) (string, int, error) {
	job := pdfJob{data: data, result: make(chan pdfResult, 1)}

	select {
	case e.jobs <- job:
	case <-ctx.Done():
		return "", 0, ctx.Err()
	case <-e.quit:
		return "", 0, &DecodeError{Detail: errEngineClosed.Error(), Err: errEngineClosed}
	}

	res := <-job.result
	return res.text, res.pages, res.err
}

func (e *pdfEngine) Close() {
	e.once.Do(func() { close(e.quit) })
	e.wg.Wait()
}

// pageSource is the part of a PDF reader the text assembly needs
type pageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

func decodePDF(data []byte) (text string, pages int, err error) {
	// the decoder panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = &DecodeError{Detail: fmt.Sprintf("malformed PDF: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if isPDFPasswordError(err) {
			return "", 0, ErrPasswordProtected
		}
		return "", 0, &DecodeError{Detail: err.Error(), Err: err}
	}

	return joinPages(pdfPages{r: r})
}

// joinPages reads pages 1..N in order and joins them with newlines. A page
// that fails to decode fails the whole document.
func joinPages(src pageSource) (string, int, error) {
	n := src.NumPage()
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		t, err := src.PageText(i)
		if err != nil {
			return "", 0, &DecodeError{Detail: fmt.Sprintf("page %d: %v", i, err), Err: err}
		}
		texts = append(texts, t)
	}
	return strings.Join(texts, "\n"), n, nil
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int {
	return p.r.NumPage()
}

// PageText joins the text rows of page i with single spaces
func (p pdfPages) PageText(i int) (string, error) {
	page := p.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	items := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, t := range row.Content {
			b.WriteString(t.S)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			items = append(items, s)
		}
	}
	return strings.Join(items, " "), nil
}

func isPDFPasswordError(err error) bool {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "encrypt")
}
