// Package analyzer sequences the extraction tiers, the structured parser,
// the heuristic fallback and the aggregator into a single statement
// analysis run, and optionally persists and mirrors the outcome.
package analyzer

import (
	"context"
	"errors"

	"github.com/finlens/statement-analyzer/internal/aggregate"
	"github.com/finlens/statement-analyzer/internal/cache"
	"github.com/finlens/statement-analyzer/internal/domain"
	"github.com/finlens/statement-analyzer/internal/extract"
	"github.com/finlens/statement-analyzer/internal/logger"
	"github.com/finlens/statement-analyzer/internal/parse"
	"github.com/finlens/statement-analyzer/internal/store"
)

// state tracks where a run is in its lifecycle. Errored is terminal and
// reachable from extracting only; every later stage always produces some
// result.
type state string

const (
	stateIdle        state = "idle"
	stateExtracting  state = "extracting"
	stateParsing     state = "parsing"
	stateAggregating state = "aggregating"
	statePersisting  state = "persisting"
	stateDone        state = "done"
	stateErrored     state = "errored"
)

// SkippedAIInsight annotates results built from the extraction service's
// pre-parsed transactions when the language model step failed.
const SkippedAIInsight = "AI analysis was unavailable; transactions were taken from " +
	"the document extraction service without model verification."

// User-facing messages for the terminal extraction failure. The
// no-credential variant tells the caller which knob to turn.
const (
	errMsgExtractionFailed = "Could not extract text from this document. " +
		"Ensure the PDF has selectable text or upload a clearer copy."
	errMsgNoVisionCredential = "Could not extract text from this document. " +
		"It appears to be scanned; configure a vision API credential to analyze scanned statements."
)

// TransactionMirror is an optional post-persistence sink, e.g. a Notion
// database. Mirroring never affects the analysis result.
type TransactionMirror interface {
	MirrorTransactions(ctx context.Context, txs []domain.Transaction, bankName string) int
}

// Deps are the analyzer's collaborators. Tiers is required and tried in
// order; everything else may be nil and is skipped when absent.
type Deps struct {
	Tiers  []extract.Tier
	Parser parse.StatementParser
	Store  store.TransactionStore
	Cache  *cache.Cache
	Mirror TransactionMirror
}

type Analyzer struct {
	tiers  []extract.Tier
	parser parse.StatementParser
	store  store.TransactionStore
	cache  *cache.Cache
	mirror TransactionMirror
}

func New(deps Deps) *Analyzer {
	return &Analyzer{
		tiers:  deps.Tiers,
		parser: deps.Parser,
		store:  deps.Store,
		cache:  deps.Cache,
		mirror: deps.Mirror,
	}
}

// Analyze runs the full pipeline over one document. It always returns a
// structured result; Success is false only when no tier produced enough
// text. userID may be empty, in which case persistence is skipped.
func (a *Analyzer) Analyze(ctx context.Context, doc *domain.RawDocument, userID string) *domain.AnalysisResult {
	log := logger.FromContext(ctx)
	st := stateIdle

	// 1. Cache lookup by content hash, scoped to the requesting user so a
	// cached result never carries another user's persistence outcome.
	var cacheKey string
	if a.cache != nil {
		cacheKey = cache.Key(doc.Data) + "|" + userID
		if cached, ok := a.cache.Get(cacheKey); ok {
			log.Info().Str("filename", doc.Filename).Msg("Returning cached analysis")
			return cached
		}
	}

	// 2. Extraction: walk the tiers in order until one yields enough text.
	st = stateExtracting
	log.Info().Str("state", string(st)).Str("filename", doc.Filename).Msg("Analyzing statement")

	var extraction *domain.ExtractionResult
	noCredential := false
	for _, tier := range a.tiers {
		res, err := tier.Attempt(ctx, doc)
		if err != nil {
			if errors.Is(err, extract.ErrNoCredential) {
				noCredential = true
			}
			log.Debug().
				Err(err).
				Str("tier", string(tier.Name())).
				Msg("Extraction tier fell through")
			continue
		}
		extraction = res
		break
	}

	if extraction == nil {
		st = stateErrored
		msg := errMsgExtractionFailed
		if noCredential {
			msg = errMsgNoVisionCredential
		}
		log.Warn().Str("state", string(st)).Str("filename", doc.Filename).Msg("All extraction tiers failed")
		return &domain.AnalysisResult{
			Success:      false,
			Transactions: []domain.Transaction{},
			Insights:     []string{},
			Error:        msg,
		}
	}

	log.Info().
		Str("method", string(extraction.Method)).
		Int("text_chars", len(extraction.Text)).
		Msg("Extraction succeeded")

	// 3. Parsing: model first, then pre-parsed transactions, then regex
	// recovery. This stage cannot fail the request.
	st = stateParsing
	log.Debug().Str("state", string(st)).Msg("Parsing extracted text")
	result := &domain.AnalysisResult{
		Method:   extraction.Method,
		Insights: []string{},
	}

	var txs []domain.Transaction
	parsed := a.runParser(ctx, extraction.Text)
	switch {
	case parsed != nil:
		txs = parsed.Transactions
		result.BankName = parsed.BankName
		result.AccountNumber = parsed.AccountNumber
		result.StatementPeriod = parsed.StatementPeriod
		result.Insights = append(result.Insights, parsed.Insights...)
	case len(extraction.PreParsed) > 0:
		txs = extraction.PreParsed
		result.Insights = append(result.Insights, SkippedAIInsight)
		log.Info().Int("count", len(txs)).Msg("Using pre-parsed transactions from extraction service")
	default:
		var insights []string
		txs, insights = parse.ExtractHeuristic(extraction.Text)
		result.Insights = append(result.Insights, insights...)
		log.Info().Int("count", len(txs)).Msg("Recovered transactions heuristically")
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	result.Transactions = txs

	if result.BankName == "" {
		if extraction.Issuer != "" {
			result.BankName = extraction.Issuer
		} else {
			result.BankName = DetectIssuer(extraction.Text)
		}
	}

	// 4. Aggregation always runs, even over an empty list.
	st = stateAggregating
	log.Debug().Str("state", string(st)).Msg("Summarizing transactions")
	result.Summary = aggregate.Summarize(txs)
	result.Success = true

	// 5. Persistence is at most one attempt; its failure is reported on
	// the result without touching the success flag.
	if a.store != nil && userID != "" {
		st = statePersisting
		log.Debug().Str("state", string(st)).Msg("Persisting transactions")
		count, err := a.store.SaveTransactions(ctx, userID, txs, store.StatementMeta{
			BankName:        result.BankName,
			AccountNumber:   result.AccountNumber,
			StatementPeriod: result.StatementPeriod,
		})
		saved := err == nil
		result.Saved = &saved
		result.SavedCount = count
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to persist transactions")
		}
	}

	// 6. Mirroring is fire-and-forget from the result's point of view.
	if a.mirror != nil && len(txs) > 0 {
		a.mirror.MirrorTransactions(ctx, txs, result.BankName)
	}

	st = stateDone
	log.Info().
		Str("state", string(st)).
		Str("method", string(result.Method)).
		Int("transactions", len(result.Transactions)).
		Msg("Analysis complete")

	if a.cache != nil {
		a.cache.Put(cacheKey, result)
	}
	return result
}

// runParser wraps the model call so decode failures surface as nil, never
// as an error for the orchestrator to propagate.
func (a *Analyzer) runParser(ctx context.Context, text string) *parse.Result {
	if a.parser == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	res, err := a.parser.Parse(ctx, text)
	if err != nil {
		var failure *parse.Failure
		if errors.As(err, &failure) {
			log.Info().Str("reason", failure.Reason).Msg("Structured parse failed, falling back")
		} else {
			log.Warn().Err(err).Msg("Structured parse failed, falling back")
		}
		return nil
	}
	return res
}
