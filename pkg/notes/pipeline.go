package notes

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tubemindai/pkg/ai"
	"tubemindai/pkg/domain"
	"tubemindai/pkg/ingest"
)

// Source is the material notes are generated from.
type Source struct {
	Kind  domain.ResourceKind
	Title string
	Text  string
}

// Result holds the three note sections the client renders.
type Result struct {
	Summary     string
	KeyPoints   string
	BulletNotes string
}

// Pipeline turns source text into structured study notes. The three sections
// are generated with independent model calls running in parallel; one
// failure fails the whole generation.
type Pipeline struct {
	gen            ai.TextGenerator
	maxSourceRunes int
}

// NewPipeline builds a pipeline on top of the generator.
func NewPipeline(gen ai.TextGenerator) *Pipeline {
	return &Pipeline{
		gen:            gen,
		maxSourceRunes: 60000,
	}
}

// Generate produces all note sections for the source.
func (p *Pipeline) Generate(ctx context.Context, src Source) (*Result, error) {
	text := strings.TrimSpace(src.Text)
	if text == "" {
		return nil, fmt.Errorf("empty source text")
	}
	text = ingest.TruncateRunes(text, p.maxSourceRunes)

	res := &Result{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := p.gen.GenerateText(ctx, summarySystemPrompt(src), text)
		if err != nil {
			return fmt.Errorf("generate summary: %w", err)
		}
		res.Summary = strings.TrimSpace(out)
		return nil
	})
	g.Go(func() error {
		out, err := p.gen.GenerateText(ctx, keyPointsSystemPrompt(src), text)
		if err != nil {
			return fmt.Errorf("generate key points: %w", err)
		}
		res.KeyPoints = NormalizeBullets(out)
		return nil
	})
	g.Go(func() error {
		out, err := p.gen.GenerateText(ctx, bulletNotesSystemPrompt(src), text)
		if err != nil {
			return fmt.Errorf("generate bullet notes: %w", err)
		}
		res.BulletNotes = NormalizeBullets(out)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func sourceLabel(src Source) string {
	if src.Kind == domain.KindPDF {
		return "PDF document"
	}
	return "video transcript"
}

func summarySystemPrompt(src Source) string {
	return fmt.Sprintf(
		"You are a study assistant. Write a concise summary (2-4 paragraphs) of the following %s titled %q. Cover the main argument and conclusions. Respond with the summary only.",
		sourceLabel(src), src.Title,
	)
}

func keyPointsSystemPrompt(src Source) string {
	return fmt.Sprintf(
		"You are a study assistant. Extract the 5-10 most important key points from the following %s titled %q. Respond with one point per line, no preamble.",
		sourceLabel(src), src.Title,
	)
}

func bulletNotesSystemPrompt(src Source) string {
	return fmt.Sprintf(
		"You are a study assistant. Produce detailed bullet-point study notes for the following %s titled %q. Follow the order of the material. Respond with one note per line, no preamble.",
		sourceLabel(src), src.Title,
	)
}

// ChatSystemPrompt builds the grounding prompt for a chat about a resource.
// The model answers from the notes and source text only.
func ChatSystemPrompt(src Source, res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a study assistant answering questions about a %s titled %q.\n", sourceLabel(src), src.Title)
	b.WriteString("Answer using only the material below. If the material does not contain the answer, say so instead of guessing.\n")
	if res != nil && res.Summary != "" {
		b.WriteString("\nSummary:\n")
		b.WriteString(res.Summary)
		b.WriteString("\n")
	}
	text := ingest.TruncateRunes(src.Text, 30000)
	if text != "" {
		b.WriteString("\nSource material:\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
