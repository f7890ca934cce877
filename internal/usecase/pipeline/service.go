// Package pipeline drives a query through the audit orchestration
// graph: classification, retrieval, rule evaluation, fraud correlation
// and synthesis, accumulating results in a per-query SharedState.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/domain/state"
	"github.com/scranton-labs/auditdex/internal/metrics"
	"github.com/scranton-labs/auditdex/internal/usecase/evidence"
)

// Result caps inside retrieval stages.
const (
	maxEntityPolicyLookups = 3  // extra policy searches per query
	entityPolicyTopK       = 2  // chunks per entity lookup
	maxEmailResults        = 10 // emails carried into state
	maxTransactions        = 30 // transactions evaluated per query
	highValueScanThreshold = 200.00
	highValueScanCap       = 20
)

// Config holds pipeline tuning knobs.
type Config struct {
	PolicyTopK        int
	EmailTopK         int
	StageTimeout      time.Duration
	SmurfingThreshold float64
}

// Service executes audit queries. Safe for concurrent use; each query
// owns its SharedState.
type Service struct {
	classifier Classifier
	policy     PolicySearcher
	email      EmailSearcher
	ledger     Ledger
	rules      RuleEngine
	generator  Generator
	cfg        Config
	logger     *zap.Logger
}

// New creates the pipeline service.
func New(
	classifier Classifier,
	policy PolicySearcher,
	email EmailSearcher,
	ledger Ledger,
	rules RuleEngine,
	generator Generator,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.PolicyTopK <= 0 {
		cfg.PolicyTopK = 3
	}
	if cfg.EmailTopK <= 0 {
		cfg.EmailTopK = 5
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 30 * time.Second
	}
	if cfg.SmurfingThreshold <= 0 {
		cfg.SmurfingThreshold = 500.00
	}
	return &Service{
		classifier: classifier,
		policy:     policy,
		email:      email,
		ledger:     ledger,
		rules:      rules,
		generator:  generator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one query through the graph and returns its final
// state. Stage failures are recorded into the state and never abort
// the traversal; only caller cancellation stops it early.
func (s *Service) Run(ctx context.Context, query string, progress ProgressFunc) (state.SharedState, error) {
	st := state.New(query)
	start := time.Now()

	for stage := StageRouter; stage != stageEnd; stage = nextStage(stage, st.QueryType) {
		emit(progress, ProgressEvent{Stage: stage, Kind: StageStarted})

		stageStart := time.Now()
		stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
		u := s.runStage(stageCtx, stage, st)
		cancel()

		u.NodesVisited = append(u.NodesVisited, stage)
		st = state.Apply(st, u)

		status := "success"
		event := ProgressEvent{Stage: stage, Kind: StageFinished}
		if u.Err != "" {
			status = "error"
			event = ProgressEvent{Stage: stage, Kind: StageFailed, Err: u.Err}
			s.logger.Warn("Stage failed, continuing",
				zap.String("stage", stage), zap.String("error", u.Err))
		}
		metrics.StageDuration.WithLabelValues(stage, status).Observe(time.Since(stageStart).Seconds())
		emit(progress, event)

		// Cancellation is honored only at stage boundaries.
		if err := ctx.Err(); err != nil {
			s.recordQuery(st, "canceled")
			return st, fmt.Errorf("query canceled after %s: %w", stage, err)
		}
	}

	status := "ok"
	if st.Err != "" {
		status = "degraded"
	}
	s.recordQuery(st, status)
	s.logger.Info("Query finished",
		zap.String("query_type", string(st.QueryType)),
		zap.Strings("stages", st.NodesVisited),
		zap.String("status", status),
		zap.Duration("took", time.Since(start)),
	)
	return st, nil
}

func (s *Service) recordQuery(st state.SharedState, status string) {
	qt := st.QueryType
	if qt == "" {
		qt = domain.QueryGeneral
	}
	metrics.QueriesTotal.WithLabelValues(string(qt), status).Inc()
}

func (s *Service) runStage(ctx context.Context, stage string, st state.SharedState) state.Update {
	switch stage {
	case StageRouter:
		return s.runRouter(ctx, st)
	case StagePolicyRetrieval:
		return s.runPolicyRetrieval(ctx, st)
	case StageEmailRetrieval:
		return s.runEmailRetrieval(ctx, st)
	case StageTransactionRetrieval:
		return s.runTransactionRetrieval(ctx, st)
	case StageFraudCorrelation:
		return s.runFraudCorrelation(ctx, st)
	case StageSynthesis:
		return s.runSynthesis(ctx, st)
	}
	return state.Update{Err: fmt.Sprintf("unknown stage %q", stage)}
}

// runRouter classifies the query. Any classifier failure or invalid
// output degrades to general with no entities.
func (s *Service) runRouter(ctx context.Context, st state.SharedState) state.Update {
	cls, err := s.classifier.Classify(ctx, st.Query)
	if err != nil {
		return state.Update{
			QueryType:   domain.QueryGeneral,
			SetEntities: true,
			Err:         fmt.Sprintf("classification failed: %v", err),
		}
	}
	if !cls.QueryType.Valid() {
		cls.QueryType = domain.QueryGeneral
	}
	return state.Update{
		QueryType:   cls.QueryType,
		Entities:    cls.Entities,
		SetEntities: true,
	}
}

// runPolicyRetrieval searches the policy corpus for the query and for
// each mentioned entity, deduplicating by chunk identity.
func (s *Service) runPolicyRetrieval(ctx context.Context, st state.SharedState) state.Update {
	var u state.Update

	chunks, err := s.policy.Search(ctx, st.Query, s.cfg.PolicyTopK)
	if err != nil {
		u.Err = fmt.Sprintf("policy retrieval: %v", err)
	}

	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		seen[c.ID] = true
		u.PolicyContext = append(u.PolicyContext, c)
	}

	for i, entity := range st.Entities {
		if i >= maxEntityPolicyLookups {
			break
		}
		extra, err := s.policy.Search(ctx, entity, entityPolicyTopK)
		if err != nil {
			u.Err = fmt.Sprintf("policy retrieval for %q: %v", entity, err)
			continue
		}
		for _, c := range extra {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			u.PolicyContext = append(u.PolicyContext, c)
		}
	}

	return u
}

// runEmailRetrieval combines semantic search with per-entity filtered
// search, deduplicating by source line.
func (s *Service) runEmailRetrieval(ctx context.Context, st state.SharedState) state.Update {
	var u state.Update
	seen := make(map[int]bool)

	add := func(emails []domain.Email) {
		for _, e := range emails {
			if seen[e.SourceLine] || len(u.EmailResults) >= maxEmailResults {
				continue
			}
			seen[e.SourceLine] = true
			u.EmailResults = append(u.EmailResults, e)
		}
	}

	results, err := s.email.Search(ctx, st.Query, s.cfg.EmailTopK)
	if err != nil {
		u.Err = fmt.Sprintf("email retrieval: %v", err)
	} else {
		add(results)
	}

	for _, entity := range st.Entities {
		results, err := s.email.SearchByEntity(ctx, st.Query, entity, s.cfg.EmailTopK)
		if err != nil {
			u.Err = fmt.Sprintf("email retrieval for %q: %v", entity, err)
			continue
		}
		add(results)
	}

	return u
}

// runTransactionRetrieval selects transactions relevant to the query
// and evaluates the compliance rules over each of them.
func (s *Service) runTransactionRetrieval(ctx context.Context, st state.SharedState) state.Update {
	var u state.Update
	var txs []domain.Transaction
	seen := make(map[string]bool)

	add := func(more []domain.Transaction, limit int) {
		for _, tx := range more {
			if seen[tx.ID] || len(txs) >= limit {
				continue
			}
			seen[tx.ID] = true
			txs = append(txs, tx)
		}
	}

	for _, entity := range st.Entities {
		byEmp, err := s.ledger.ByEmployee(ctx, entity)
		if err != nil {
			u.Err = fmt.Sprintf("ledger lookup for %q: %v", entity, err)
			continue
		}
		add(byEmp, maxTransactions)
	}

	// Fraud investigations also sweep high-value spending beyond the
	// named entities.
	if st.QueryType == domain.QueryFraud && len(txs) < highValueScanCap {
		highValue, err := s.ledger.HighValue(ctx, highValueScanThreshold)
		if err != nil {
			u.Err = fmt.Sprintf("high-value ledger scan: %v", err)
		} else {
			add(highValue, highValueScanCap)
		}
	}

	if len(txs) == 0 {
		all, err := s.ledger.All(ctx, maxTransactions)
		if err != nil {
			u.Err = fmt.Sprintf("ledger scan: %v", err)
			return u
		}
		add(all, maxTransactions)
	}

	u.TransactionResults = s.rules.EvaluateAll(txs)
	return u
}

// runFraudCorrelation is the only cross-corpus stage: it scans the
// retrieved transactions for same-day splitting and ties flagged
// spending back to email evidence.
func (s *Service) runFraudCorrelation(_ context.Context, st state.SharedState) state.Update {
	var u state.Update

	txs := make([]domain.Transaction, len(st.TransactionResults))
	for i, r := range st.TransactionResults {
		txs[i] = r.Transaction
	}

	for _, employee := range candidateEmployees(st) {
		u.FraudAlerts = append(u.FraudAlerts, s.smurfingAlerts(txs, employee)...)

		if alert, ok := correlateSpending(st, employee); ok {
			u.FraudAlerts = append(u.FraudAlerts, alert)
		}
	}

	return u
}

// smurfingAlerts runs the same-day split detection for one employee
// across every date they transacted on.
func (s *Service) smurfingAlerts(txs []domain.Transaction, employee string) []domain.FraudAlert {
	var alerts []domain.FraudAlert

	for _, date := range transactionDates(txs, employee) {
		flagged := s.rules.DetectSmurfing(txs, employee, date, s.cfg.SmurfingThreshold)
		if len(flagged) == 0 {
			continue
		}

		var ids []string
		var total float64
		for _, tx := range txs {
			if _, ok := flagged[tx.ID]; ok {
				ids = append(ids, tx.ID)
				total += tx.Amount
			}
		}

		alerts = append(alerts, domain.FraudAlert{
			Kind:     "smurfing",
			Severity: domain.SeverityCritical,
			Employee: employee,
			Description: fmt.Sprintf(
				"%d same-day transactions on %s totaling $%.2f, above the $%.2f single-transaction threshold",
				len(ids), date, total, s.cfg.SmurfingThreshold),
			EvidenceTransactionIDs: ids,
			TotalAmount:            total,
			RuleRef:                "Section 1.3",
		})
	}
	return alerts
}

// correlateSpending ties an employee's flagged transactions to emails
// mentioning them. Emitted only when both sides have evidence.
func correlateSpending(st state.SharedState, employee string) (domain.FraudAlert, bool) {
	var ids []string
	var total float64
	severity := domain.SeverityLow
	ruleRef := ""
	for _, r := range st.TransactionResults {
		if !r.Flagged() || !strings.Contains(strings.ToLower(r.Employee), strings.ToLower(employee)) {
			continue
		}
		ids = append(ids, r.ID)
		total += r.Amount
		for _, v := range r.Violations {
			if severityRank(v.Severity) > severityRank(severity) {
				severity = v.Severity
			}
			if ruleRef == "" {
				ruleRef = v.RuleRef
			}
		}
	}
	if len(ids) == 0 {
		return domain.FraudAlert{}, false
	}

	var lines []int
	needle := strings.ToLower(employee)
	for _, e := range st.EmailResults {
		if strings.Contains(strings.ToLower(e.From), needle) ||
			strings.Contains(strings.ToLower(e.To), needle) ||
			strings.Contains(strings.ToLower(e.Body), needle) {
			lines = append(lines, e.SourceLine)
		}
	}
	if len(lines) == 0 {
		return domain.FraudAlert{}, false
	}

	return domain.FraudAlert{
		Kind:     "correlated_spending",
		Severity: severity,
		Employee: employee,
		Description: fmt.Sprintf(
			"%d flagged transactions totaling $%.2f corroborated by %d email(s)",
			len(ids), total, len(lines)),
		EvidenceTransactionIDs: ids,
		EvidenceEmailLines:     lines,
		TotalAmount:            total,
		RuleRef:                ruleRef,
	}, true
}

// runSynthesis builds the evidence payload and asks the narrative
// generator for the final answer. Empty or failed generation falls
// back to the aggregator's templated answer.
func (s *Service) runSynthesis(ctx context.Context, st state.SharedState) state.Update {
	u := state.Update{EvidenceSummary: evidence.Summary(st)}

	answer, err := s.generator.Generate(ctx, evidence.Build(st))
	switch {
	case err != nil:
		u.FinalAnswer = evidence.FallbackAnswer(st)
		u.Err = fmt.Sprintf("narrative generation: %v", err)
	case strings.TrimSpace(answer) == "":
		u.FinalAnswer = evidence.FallbackAnswer(st)
		u.Err = "narrative generation: empty output"
	default:
		u.FinalAnswer = answer
	}
	return u
}

// candidateEmployees returns who fraud correlation should look at: the
// classified entities, or failing that, every employee with a flagged
// transaction, in first-seen order.
func candidateEmployees(st state.SharedState) []string {
	if len(st.Entities) > 0 {
		return st.Entities
	}

	seen := make(map[string]bool)
	var employees []string
	for _, r := range st.TransactionResults {
		if !r.Flagged() || seen[r.Employee] {
			continue
		}
		seen[r.Employee] = true
		employees = append(employees, r.Employee)
	}
	return employees
}

// transactionDates returns the distinct dates the employee transacted
// on, in first-seen order.
func transactionDates(txs []domain.Transaction, employee string) []string {
	needle := strings.ToLower(employee)
	seen := make(map[string]bool)
	var dates []string
	for _, tx := range txs {
		if !strings.Contains(strings.ToLower(tx.Employee), needle) {
			continue
		}
		if !seen[tx.Date] {
			seen[tx.Date] = true
			dates = append(dates, tx.Date)
		}
	}
	return dates
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 3
	case domain.SeverityHigh:
		return 2
	case domain.SeverityMedium:
		return 1
	default:
		return 0
	}
}

func emit(progress ProgressFunc, e ProgressEvent) {
	if progress != nil {
		progress(e)
	}
}
