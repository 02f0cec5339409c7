package license

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
	"github.com/bonbonpfw/constractbuild/internal/llm"
)

// Source is the material one extraction works from. Text is the license text
// when it is known; Data is the original file, if any.
type Source struct {
	Name string
	Text string
	Data []byte
}

// Strategy produces a license record from a source.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, src Source) (*Extraction, error)
}

// RegexStrategy runs the offline pattern extractor over the source text.
type RegexStrategy struct {
	Extractor Extractor
}

func (RegexStrategy) Name() string { return "regex" }

// Extract never fails: text without recognisable fields, including empty
// text, yields an all-unknown record.
func (s RegexStrategy) Extract(_ context.Context, src Source) (*Extraction, error) {
	return s.Extractor.Extract(src.Text), nil
}

// LLMStrategy asks a language model. Images and PDFs are attached as files;
// anything else is sent as text.
type LLMStrategy struct {
	Completer llm.Completer
}

func (LLMStrategy) Name() string { return "llm" }

func (s LLMStrategy) Extract(ctx context.Context, src Source) (*Extraction, error) {
	prompt := Prompt
	var attachments []llm.Attachment

	if len(src.Data) > 0 {
		if mediaType, ok := AttachmentType(src.Data); ok {
			attachments = append(attachments, llm.Attachment{MediaType: mediaType, Data: src.Data})
		}
	}
	if len(attachments) == 0 {
		if strings.TrimSpace(src.Text) == "" {
			return nil, docerrors.New(docerrors.ErrorTypeLLMExtraction, "nothing to send to the model").WithFile(src.Name)
		}
		prompt = Prompt + "\n\nLicense text:\n" + src.Text
	}

	answer, err := s.Completer.Complete(ctx, prompt, attachments...)
	if err != nil {
		return nil, docerrors.Wrap(docerrors.ErrorTypeLLMExtraction, "model request failed", err).WithFile(src.Name)
	}
	return ParseLLMResponse(answer)
}

var attachable = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"}

// AttachmentType reports the media type of data when a model can take it as a file.
func AttachmentType(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for _, t := range attachable {
		if mt.Is(t) {
			return t, true
		}
	}
	return mt.String(), false
}

// Outcome is the merged result of a pipeline run.
type Outcome struct {
	Data *LicenseData `json:"data"`
	// Strategies lists the strategies that contributed, in order.
	Strategies  []string        `json:"strategies"`
	FieldErrors map[Field]error `json:"-"`
	FallbackErr error           `json:"-"`
}

// Pipeline runs Primary and, when the result lacks a critical field, Fallback.
// Values from Fallback override Primary's only when they are set.
type Pipeline struct {
	Primary  Strategy
	Fallback Strategy
	Logger   *log.Logger
}

// Run extracts a record from src. It fails only when no strategy produced a result.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Outcome, error) {
	out := &Outcome{Data: &LicenseData{}, FieldErrors: make(map[Field]error)}

	primary, err := p.Primary.Extract(ctx, src)
	if err != nil {
		if p.Fallback == nil {
			return nil, fmt.Errorf("%s extraction failed: %w", p.Primary.Name(), err)
		}
		p.logf("%s extraction failed for %s: %v", p.Primary.Name(), src.Name, err)
	} else {
		out.merge(p.Primary.Name(), primary)
	}

	missing := out.Data.Missing(CriticalFields...)
	if p.Fallback == nil || len(missing) == 0 {
		return out, nil
	}

	p.logf("running %s for %s, missing %v", p.Fallback.Name(), src.Name, missing)
	fallback, fbErr := p.Fallback.Extract(ctx, src)
	if fbErr != nil {
		out.FallbackErr = fbErr
		if err != nil {
			return nil, fmt.Errorf("all strategies failed: %s: %v; %s: %w", p.Primary.Name(), err, p.Fallback.Name(), fbErr)
		}
		return out, nil
	}
	out.merge(p.Fallback.Name(), fallback)
	return out, nil
}

func (o *Outcome) merge(name string, ex *Extraction) {
	if ex == nil {
		return
	}
	o.Data.Override(ex.Data)
	for f, err := range ex.Errors {
		if !o.Data.Has(f) {
			o.FieldErrors[f] = err
		}
	}
	for f := range o.FieldErrors {
		if o.Data.Has(f) {
			delete(o.FieldErrors, f)
		}
	}
	o.Strategies = append(o.Strategies, name)
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
