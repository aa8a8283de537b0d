package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"devpress/publisher/internal/pipeline"
)

type Service struct {
	assembler *Assembler
	writer    Writer
	path      string
}

func NewService(assembler *Assembler, writer Writer, path string) *Service {
	return &Service{assembler: assembler, writer: writer, path: path}
}

func (s *Service) Name() string {
	return pipeline.Sitemap
}

func (s *Service) Run(ctx context.Context, now time.Time) (pipeline.Result, error) {
	urls, err := s.assembler.Assemble(ctx, now)
	if err != nil {
		return pipeline.Result{}, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, urls); err != nil {
		return pipeline.Result{}, fmt.Errorf("encode sitemap: %w", err)
	}

	if err := s.writer.Write(s.path, buf.Bytes()); err != nil {
		return pipeline.Result{}, fmt.Errorf("%w: %w", pipeline.ErrSinkWrite, err)
	}

	slog.InfoContext(ctx, "sitemap written", "path", s.path, "urls", len(urls), "bytes", buf.Len())
	return pipeline.Result{Count: len(urls)}, nil
}
