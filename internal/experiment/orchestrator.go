package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/assistant"
	"github.com/xaenox/shopbot-experiment/internal/models"
	"github.com/xaenox/shopbot-experiment/internal/recommend"
)

// FallbackReply is shown when the generation service fails
const FallbackReply = "抱歉，我暂时无法为你推荐耳机，请稍后再试。"

// ProductsOnlyReply stands in for a reply that carried nothing but the
// recommendation marker
const ProductsOnlyReply = "为你推荐以下耳机："

var errBlankReply = errors.New("blank reply")

type Catalog interface {
	Products() ([]models.Product, error)
}

// Response is what a conversational turn produces for the participant
type Response struct {
	Reply       string                  `json:"response"`
	Adaptivity  models.Level            `json:"adaptivity"`
	Calibration models.Level            `json:"calibration"`
	Products    []models.ProductSummary `json:"products"`
	Tier        recommend.Tier          `json:"-"`
}

// Orchestrator drives one turn: candidate set, generation, extraction.
// It performs no persistence; the caller supplies history.
type Orchestrator struct {
	catalog   Catalog
	generator assistant.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

func NewOrchestrator(catalog Catalog, generator assistant.Generator, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// Respond never fails because of the generation service; a failed or
// blank completion is replaced by FallbackReply and the default product
// set. Only a catalog failure is returned as an error.
func (o *Orchestrator) Respond(ctx context.Context, message string, cond models.Condition, history []models.ProductSummary) (*Response, error) {
	catalog, err := o.catalog.Products()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	candidates := recommend.BuildCandidateSet(catalog, history)

	genCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	reply, err := o.generate(genCtx, assistant.Request{
		UserMessage: message,
		Candidates:  candidates,
		Condition:   cond,
	})
	if err != nil {
		o.logger.Error("Failed to get assistant reply", zap.Error(err))
		reply = FallbackReply
	}

	extraction := recommend.ExtractReferencedProducts(reply, candidates, catalog)
	if extraction.Reply == "" {
		extraction.Reply = ProductsOnlyReply
	}
	o.logger.Debug("Resolved recommended products",
		zap.String("tier", string(extraction.Tier)),
		zap.Int("candidates", len(candidates)),
		zap.Int("products", len(extraction.Products)))

	return &Response{
		Reply:       extraction.Reply,
		Adaptivity:  cond.Adaptivity,
		Calibration: cond.Calibration,
		Products:    recommend.Summarize(extraction.Products),
		Tier:        extraction.Tier,
	}, nil
}

// generate calls the generator and turns a panic or a blank reply into an error
func (o *Orchestrator) generate(ctx context.Context, req assistant.Request) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = "", fmt.Errorf("generator panicked: %v", r)
		}
	}()

	reply, err = o.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errBlankReply
	}
	return reply, nil
}
